package sqlite

import "fmt"

// The brain lives next to the rest of the bot's state unless a path is set.
const defaultDBFile = "memory.db"

// defaultBusyTimeout is how long, in milliseconds, a save waits for a lock
// held by another connection.
const defaultBusyTimeout = 5000

// Config is the `modules.memory.sqlite` block.
type Config struct {
	// Path of the database file. Relative paths resolve against the working
	// directory; empty means <data dir>/memory.db.
	Path string `yaml:"path"`

	// WAL switches the journal to write-ahead logging. On unless set to false.
	WAL *bool `yaml:"wal"`

	// BusyTimeout in milliseconds. Zero means the default.
	BusyTimeout int `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		on := true
		c.WAL = &on
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("memory.sqlite: busy_timeout cannot be negative (got %d)", c.BusyTimeout)
	}
	return nil
}
