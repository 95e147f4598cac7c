package notify

import (
	"errors"
	"fmt"
	"testing"

	"cis-portal/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenter(t *testing.T) {
	c := NewCenter(3, nil)
	c.Success("Customer created successfully!")
	c.Warning("ID card file not found")

	pending := c.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, LevelSuccess, pending[0].Level)
	assert.Equal(t, LevelWarning, pending[1].Level)
	assert.NotEmpty(t, pending[0].ID)

	drained := c.Drain()
	assert.Equal(t, pending, drained)
	assert.Empty(t, c.Drain())
	assert.NotNil(t, c.Drain())
}

func TestCenter_Capacity(t *testing.T) {
	c := NewCenter(2, nil)
	for i := 0; i < 5; i++ {
		c.Info(fmt.Sprint(i))
	}
	got := c.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].Message)
	assert.Equal(t, "4", got[1].Message)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Email already exists", ErrorText(&httpclient.HTTPError{Status: 409, Message: "Email already exists"}, "Failed to create customer"))
	assert.Equal(t, "Failed to create customer", ErrorText(&httpclient.HTTPError{Message: httpclient.MessageNetwork}, "Failed to create customer"))
	assert.Equal(t, "Failed", ErrorText(fmt.Errorf("wrapped: %w", errors.New("x")), "Failed"))
}
