package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"both", User{UserName: "bob", FirstName: "Bob", LastName: "Smith"}, "Bob Smith"},
		{"first", User{UserName: "bob", FirstName: "Bob"}, "Bob"},
		{"last", User{UserName: "bob", LastName: "Smith"}, "Smith"},
		{"none", User{UserName: "bob"}, "bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}
