package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefault(t *testing.T) {
	Reset()
	defer Reset()

	m := InitDefault()
	require.NotNil(t, m)
	assert.Same(t, m, Default)
	assert.Same(t, m, InitDefault())
	assert.Same(t, m, GetDefault())
}

func TestServe(t *testing.T) {
	reg, m := NewRegistry()
	m.ObserveRequest("GET", 200, time.Millisecond)

	srv, err := Serve("127.0.0.1:0", reg)
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "twcadmin_gateway_requests_total")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
