package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

func (r *recorder) step(name string, err error) func(context.Context) error {
	return func(context.Context) error {
		r.calls = append(r.calls, name)
		return err
	}
}

func TestSaga_Execute_Success(t *testing.T) {
	rec := &recorder{}
	s := New("create_book", time.Second).
		AddStep("save_cover", rec.step("save_cover", nil), rec.step("remove_cover", nil)).
		AddStep("insert_book", rec.step("insert_book", nil), nil)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"save_cover", "insert_book"}, rec.calls)
}

func TestSaga_Execute_FailureCompensatesInReverse(t *testing.T) {
	errDuplicate := errors.New("isbn duplicate")
	rec := &recorder{}
	s := New("create_book", time.Second).
		AddStep("a", rec.step("a", nil), rec.step("undo_a", nil)).
		AddStep("b", rec.step("b", nil), rec.step("undo_b", nil)).
		AddStep("c", rec.step("c", errDuplicate), rec.step("undo_c", nil))

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errDuplicate)
	assert.Equal(t, []string{"a", "b", "c", "undo_b", "undo_a"}, rec.calls)
}

func TestSaga_Execute_CompensationFailureJoined(t *testing.T) {
	errInsert := errors.New("insert failed")
	errRemove := errors.New("remove failed")
	rec := &recorder{}
	s := New("create_book", 0).
		AddStep("save_cover", rec.step("save_cover", nil), rec.step("remove_cover", errRemove)).
		AddStep("insert_book", rec.step("insert_book", errInsert), nil)

	err := s.Execute(context.Background())
	assert.ErrorIs(t, err, errInsert)
	assert.ErrorIs(t, err, errRemove)
	assert.Equal(t, []string{"save_cover", "insert_book", "remove_cover"}, rec.calls)
}

func TestSaga_Execute_Timeout(t *testing.T) {
	rec := &recorder{}
	s := New("create_book", 20*time.Millisecond).
		AddStep("slow", func(ctx context.Context) error {
			rec.calls = append(rec.calls, "slow")
			<-ctx.Done()
			return nil
		}, rec.step("undo_slow", nil)).
		AddStep("never", rec.step("never", nil), nil)

	err := s.Execute(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"slow", "undo_slow"}, rec.calls)
}

func TestSaga_CompensateGetsLiveContext(t *testing.T) {
	var compErr error
	ctx, cancel := context.WithCancel(context.Background())

	s := New("create_book", 0).
		AddStep("a", func(context.Context) error { return nil }, func(ctx context.Context) error {
			compErr = ctx.Err()
			return nil
		}).
		AddStep("b", func(context.Context) error {
			cancel()
			return errors.New("b failed")
		}, nil)

	require.Error(t, s.Execute(ctx))
	assert.NoError(t, compErr)
}

func TestSaga_Reusable(t *testing.T) {
	rec := &recorder{}
	s := New("create_book", 0).
		AddStep("a", rec.step("a", nil), rec.step("undo_a", nil))

	require.NoError(t, s.Execute(context.Background()))
	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"a", "a"}, rec.calls)
}
