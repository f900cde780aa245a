package strcase

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestMemberName(t *testing.T) {
	no := false
	empty := ""
	tests := []struct {
		name     string
		input    string
		override Override
		expected string
	}{
		{"Camel", "UserStore", Override{}, "_userStore"},
		{"StripInterfaceMarker", "ILogger", Override{}, "_logger"},
		{"KeepLoneI", "Io", Override{}, "_io"},
		{"NoStrip", "ILogger", Override{Strip: &no}, "_iLogger"},
		{"Pascal", "ILogger", Override{Style: Pascal}, "_Logger"},
		{"Snake", "IUserStore", Override{Style: Snake}, "_user_store"},
		{"SnakeAcronym", "HTTPClient", Override{Style: Snake}, "_h_t_t_p_client"},
		{"NoPrefix", "Clock", Override{Prefix: &empty}, "clock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := DefaultNaming().With(tt.override).MemberName(tt.input)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestMemberNameIsStable(t *testing.T) {
	naming := DefaultNaming()
	first := naming.MemberName("IRepository")
	for range 3 {
		assert.Equal(t, first, naming.MemberName("IRepository"))
	}
}

func TestStyleUnmarshalText(t *testing.T) {
	var style Style
	assert.NoError(t, style.UnmarshalText([]byte("Snake")))
	assert.Equal(t, Snake, style)
	assert.Error(t, style.UnmarshalText([]byte("kebab")))
}
