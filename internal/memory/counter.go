package memory

import "github.com/spf13/cast"

// Increment adds one to the integer stored under key and returns the new
// value. Missing or non-numeric values count as zero. Persisted numbers come
// back as float64, so the stored value is coerced before incrementing.
func Increment(s Store, scope Scope, key string) int {
	v := s.Update(scope, key, func(old any, _ bool) any {
		return cast.ToInt(old) + 1
	})
	return cast.ToInt(v)
}

// GetString returns the value under key coerced to a string.
func GetString(s Store, scope Scope, key string) string {
	v, _ := s.Get(scope, key)
	return cast.ToString(v)
}
