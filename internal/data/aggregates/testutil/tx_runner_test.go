package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
)

func TestInjectedTxRunner_CommitsOnSuccess(t *testing.T) {
	r := &InjectedTxRunner{}
	called := false
	err := r.InTx(context.Background(), func(_ dbctx.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !called {
		t.Fatalf("expected callback to run")
	}
	if r.BeginCalls != 1 || r.CommitCalls != 1 || r.RollbackCalls != 0 {
		t.Fatalf("unexpected counters begin=%d commit=%d rollback=%d", r.BeginCalls, r.CommitCalls, r.RollbackCalls)
	}
}

func TestInjectedTxRunner_RollbackOnBodyError(t *testing.T) {
	r := &InjectedTxRunner{}
	bodyErr := errors.New("boom")
	err := r.InTx(context.Background(), func(_ dbctx.Context) error {
		return bodyErr
	})
	if !errors.Is(err, bodyErr) {
		t.Fatalf("expected body err, got %v", err)
	}
	if r.BeginCalls != 1 || r.CommitCalls != 0 || r.RollbackCalls != 1 {
		t.Fatalf("unexpected counters begin=%d commit=%d rollback=%d", r.BeginCalls, r.CommitCalls, r.RollbackCalls)
	}
}

func TestInjectedTxRunner_FailCommitOnlyOnSelectedCall(t *testing.T) {
	commitErr := errors.New("commit failed")
	r := &InjectedTxRunner{FailCommit: commitErr, FailCommitOnCall: 2}
	noop := func(_ dbctx.Context) error { return nil }

	if err := r.InTx(context.Background(), noop); err != nil {
		t.Fatalf("call 1: unexpected err: %v", err)
	}
	if err := r.InTx(context.Background(), noop); !errors.Is(err, commitErr) {
		t.Fatalf("call 2: expected commit err, got %v", err)
	}
	if err := r.InTx(context.Background(), noop); err != nil {
		t.Fatalf("call 3: unexpected err: %v", err)
	}
	if r.BeginCalls != 3 || r.CommitCalls != 2 || r.RollbackCalls != 1 {
		t.Fatalf("unexpected counters begin=%d commit=%d rollback=%d", r.BeginCalls, r.CommitCalls, r.RollbackCalls)
	}
}

type recordingRunner struct{ calls int }

func (r *recordingRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.calls++
	return fn(dbctx.Context{Ctx: ctx})
}

func TestInjectedTxRunner_DelegatesBody(t *testing.T) {
	inner := &recordingRunner{}
	r := &InjectedTxRunner{Delegate: inner}
	if err := r.InTx(context.Background(), func(_ dbctx.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("delegate calls: want=1 got=%d", inner.calls)
	}
}
