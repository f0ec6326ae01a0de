package main

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogLevelFromEnv(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":      zerolog.Disabled,
		"0":     zerolog.Disabled,
		"false": zerolog.Disabled,
		"1":     zerolog.DebugLevel,
		"true":  zerolog.DebugLevel,
		"trace": zerolog.DebugLevel,
	}
	previous := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(previous) })

	for value, want := range tests {
		t.Run("DEBUG_PAYDASH="+value, func(t *testing.T) {
			t.Setenv("DEBUG_PAYDASH", value)
			configureLogLevelFromEnv()
			assert.Equal(t, want, zerolog.GlobalLevel())
		})
	}
}

func TestSetupInterruptListener(t *testing.T) {
	stopChan := setupInterruptListener()
	require.NotNil(t, stopChan)
	assert.Equal(t, 1, cap(stopChan))
}

func TestHandleInterrupt(t *testing.T) {
	stopChan := make(chan os.Signal, 1)
	exitCodes := make(chan int, 1)
	messages := make(chan string, 1)

	go handleInterrupt(stopChan, func(msg string) { messages <- msg }, func(code int) { exitCodes <- code })
	stopChan <- os.Interrupt

	select {
	case code := <-exitCodes:
		assert.Equal(t, 1, code)
		assert.Equal(t, "Interrupt signal received. Exiting...", <-messages)
	case <-time.After(time.Second):
		t.Fatal("exit was not called after an interrupt")
	}
}
