package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		raw    string
		action Action
		arg    string
	}{
		{"say hi", ActionCommand, "say hi"},
		{"  list  ", ActionCommand, "list"},
		{"", ActionCommand, ""},
		{"//tp player", ActionCommand, "/tp player"},
		{"/connect survival1", ActionConnect, "survival1"},
		{"/reconnect", ActionConnect, ""},
		{"/DISCONNECT", ActionDisconnect, ""},
		{"/clear", ActionClear, ""},
		{"/export out.log", ActionExport, "out.log"},
		{"/autoscroll", ActionAutoScroll, ""},
		{"/status", ActionStatus, ""},
		{"/help", ActionHelp, ""},
		{"/quit", ActionQuit, ""},
		{"/exit", ActionQuit, ""},
		{"/frobnicate now", ActionUnknown, "frobnicate"},
	}
	for _, tt := range tests {
		action, arg := ParseAction(tt.raw)
		assert.Equal(t, tt.action, action, tt.raw)
		assert.Equal(t, tt.arg, arg, tt.raw)
	}
}
