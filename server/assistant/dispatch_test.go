package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thachpham/thachai/server/nlu"
)

func dispatchRequest(language string) *Request {
	return &Request{
		Utterance: utterance("caller", "input"),
		Entities:  map[string]string{},
		Language:  language,
	}
}

func TestNewDispatcherPanicsOnPartialTable(t *testing.T) {
	table := uniformTable(okHandler)
	delete(table, nlu.IntentGeneralChat)
	require.Panics(t, func() {
		NewDispatcher(table, time.Second)
	})
}

func TestDispatchSuccess(t *testing.T) {
	d := NewDispatcher(uniformTable(okHandler), time.Second)
	hr := d.Dispatch(context.Background(), nlu.IntentGreeting, dispatchRequest("vi"))
	require.True(t, hr.Success)
	require.Equal(t, "ok: input", hr.Message)
}

func TestDispatchTimeoutDegrades(t *testing.T) {
	slow := func(ctx context.Context, _ *Request) (*HandlerResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	d := NewDispatcher(uniformTable(slow), 20*time.Millisecond)

	start := time.Now()
	hr := d.Dispatch(context.Background(), nlu.IntentSearch, dispatchRequest("en"))
	require.Less(t, time.Since(start), time.Second)
	require.False(t, hr.Success)
	require.Contains(t, hr.Message, "Sorry")
}

func TestDispatchPanicDegrades(t *testing.T) {
	panics := func(_ context.Context, _ *Request) (*HandlerResult, error) {
		panic("boom")
	}
	d := NewDispatcher(uniformTable(panics), time.Second)
	hr := d.Dispatch(context.Background(), nlu.IntentNote, dispatchRequest("vi"))
	require.False(t, hr.Success)
	require.Contains(t, hr.Message, "Xin lỗi")
}

func TestDispatchErrorDegradesLocalized(t *testing.T) {
	failing := func(_ context.Context, _ *Request) (*HandlerResult, error) {
		return nil, context.DeadlineExceeded
	}
	d := NewDispatcher(uniformTable(failing), time.Second)

	hr := d.Dispatch(context.Background(), nlu.IntentSearch, dispatchRequest("vi"))
	require.False(t, hr.Success)
	require.Contains(t, hr.Message, "Xin lỗi")

	hr = d.Dispatch(context.Background(), nlu.IntentSearch, dispatchRequest("en"))
	require.Contains(t, hr.Message, "Sorry")
}

func TestDispatchNilResultDegrades(t *testing.T) {
	nilResult := func(_ context.Context, _ *Request) (*HandlerResult, error) {
		return nil, nil
	}
	d := NewDispatcher(uniformTable(nilResult), time.Second)
	hr := d.Dispatch(context.Background(), nlu.IntentGreeting, dispatchRequest("vi"))
	require.False(t, hr.Success)
	require.NotEmpty(t, hr.Message)
}
