package main

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kolide/hybridenroll/pkg/log/multislogger"
	"github.com/stretchr/testify/require"
)

func TestInterrupt_Multiple(t *testing.T) {
	t.Parallel()

	sigChannel := make(chan os.Signal, 1)
	ctx, cancel := context.WithCancel(t.Context())
	sigListener := newSignalListener(sigChannel, cancel, multislogger.NewNopLogger())

	executeReturned := make(chan error, 1)
	go func() {
		executeReturned <- sigListener.Execute()
	}()

	time.Sleep(100 * time.Millisecond)
	sigListener.Interrupt(errors.New("test error"))

	// Confirm we can call Interrupt multiple times without blocking
	interruptComplete := make(chan struct{})
	expectedInterrupts := 3
	for i := 0; i < expectedInterrupts; i += 1 {
		go func() {
			sigListener.Interrupt(nil)
			interruptComplete <- struct{}{}
		}()
	}

	receivedInterrupts := 0
	for receivedInterrupts < expectedInterrupts {
		select {
		case <-interruptComplete:
			receivedInterrupts += 1
		case <-time.After(5 * time.Second):
			t.Fatalf("could not call interrupt multiple times and return within 5 seconds, received %d interrupts", receivedInterrupts)
		}
	}

	select {
	case err := <-executeReturned:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("execute did not return after interrupt")
	}

	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestExecute_Signal(t *testing.T) {
	t.Parallel()

	sigChannel := make(chan os.Signal, 1)
	_, cancel := context.WithCancel(t.Context())
	defer cancel()
	sigListener := newSignalListener(sigChannel, cancel, multislogger.NewNopLogger())

	sigChannel <- os.Interrupt
	require.NoError(t, sigListener.Execute())
	sigListener.Interrupt(nil)
}
