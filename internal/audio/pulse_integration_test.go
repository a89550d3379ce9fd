//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSelectAndCaptureDefaultSourceIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	devices, err := ListDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, devices)

	capture, selection, err := Listen(ctx, "default", "default")
	require.NoError(t, err)
	require.NotEmpty(t, selection.Device.ID)

	select {
	case chunk := <-capture.Chunks():
		require.NotEmpty(t, chunk)
	case <-ctx.Done():
		t.Fatal("no audio chunk captured from the default source")
	}
	require.NoError(t, capture.Stop())
}
