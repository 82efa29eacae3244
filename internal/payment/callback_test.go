package payment

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerDeliversReference(t *testing.T) {
	listener := NewListener(0)
	url, err := listener.Start()
	require.NoError(t, err)
	defer func() { _ = listener.Close(context.Background()) }()

	resp, err := http.Get(url + "?reference=ref-1")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case ref := <-listener.References():
		assert.Equal(t, "ref-1", ref)
	case <-time.After(time.Second):
		t.Fatal("no reference delivered")
	}
}

func TestListenerRejectsMissingReference(t *testing.T) {
	listener := NewListener(0)
	url, err := listener.Start()
	require.NoError(t, err)
	defer func() { _ = listener.Close(context.Background()) }()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	select {
	case ref := <-listener.References():
		t.Fatalf("unexpected reference %q", ref)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestListenerDropsDuplicateRedirects(t *testing.T) {
	listener := NewListener(0)
	url, err := listener.Start()
	require.NoError(t, err)
	defer func() { _ = listener.Close(context.Background()) }()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(url + "?reference=ref-1")
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	select {
	case ref := <-listener.References():
		assert.Equal(t, "ref-1", ref)
	case <-time.After(time.Second):
		t.Fatal("no reference delivered")
	}

	select {
	case ref := <-listener.References():
		t.Fatalf("duplicate reference delivered: %q", ref)
	case <-time.After(50 * time.Millisecond):
	}
}
