package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/pkg/message"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolSendMessage  = "send_message"
	ToolListBranches = "list_branches"
)

// NewServer returns an MCP server exposing the bridge tools.
func (b *Bridge) NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"sbot",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Talk to the bot with send_message. "+
			"list_branches shows what it listens for."),
	)
	s.AddTool(sendMessageTool(), b.handleSendMessage)
	s.AddTool(listBranchesTool(), b.handleListBranches)
	return s
}

// Serve runs the MCP server on stdin and stdout until the input closes.
func (b *Bridge) Serve(version string) error {
	return server.ServeStdio(b.NewServer(version))
}

func sendMessageTool() mcp.Tool {
	return mcp.NewTool(ToolSendMessage,
		mcp.WithDescription("Send a chat message to the bot and return its replies."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text.")),
		mcp.WithString("user", mcp.Description("Sender id. Defaults to the configured user.")),
		mcp.WithString("room", mcp.Description("Group room id. The message then needs to name the bot; "+
			"without a room it arrives as a direct message.")),
	)
}

func listBranchesTool() mcp.Tool {
	return mcp.NewTool(ToolListBranches,
		mcp.WithDescription("List the branches the bot has registered."),
	)
}

func (b *Bridge) handleSendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil || text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	user := req.GetString("user", b.config.User)

	room := message.Room{ID: b.config.Room, Type: message.RoomDM}
	if id := req.GetString("room", ""); id != "" {
		room = message.Room{ID: id, Type: message.RoomGroup}
	}

	msg := message.NewMessage(ChannelName, message.User{ID: user, Name: user}, room, text)
	name, alias := b.botNames()
	channel.Address(&msg, name, alias)

	envs, err := b.exchange(ctx, msg)
	if err != nil {
		if errors.Is(err, channel.ErrNoInbox) {
			return mcp.NewToolResultError("the bot is not running"), nil
		}
		b.logger.Warn("bridged message failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	reply := formatReplies(envs)
	if reply == "" {
		reply = "(no reply)"
	}
	return mcp.NewToolResultText(reply), nil
}

func (b *Bridge) handleListBranches(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := []bot.Info{}
	if b.bot != nil {
		for _, br := range b.bot.Registry().Branches() {
			out = append(out, br.Info())
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
