package errors

import (
	berrs "errors"
	"testing"
)

func TestWrap(t *testing.T) {
	type args struct {
		err error
		str string
	}

	tests := []struct {
		name string
		args args
		want string
	}{
		{"simple wrap", args{berrs.New("connection reset"), "transport: dial failed"}, "transport: dial failed: connection reset"},
		{"colon in message", args{berrs.New("timeout after 5s"), "transport: read failed:"}, "transport: read failed:: timeout after 5s"},
		{"empty prefix", args{berrs.New("downstream 500"), ""}, ": downstream 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Wrap(tt.args.err, tt.args.str); err.Error() != tt.want {
				t.Errorf("Wrap() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWrapPreservesCauseForIsAndUnwrap(t *testing.T) {
	var (
		errDial    = berrs.New("dial tcp: i/o timeout")
		errDecode  = berrs.New("unexpected end of JSON input")
		errRemote  = berrs.New("remote connection closed")
	)

	tests := []struct {
		name string
		wrap error
		msg  string
	}{
		{"dial failure", errDial, "transport: failed to connect"},
		{"decode failure", errDecode, "codec: failed to decode output"},
		{"remote closed", errRemote, "transport: attempt aborted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Wrap(tt.wrap, tt.msg)

			if !Is(wrapped, tt.wrap) {
				t.Errorf("Is(%v, %v) = false, want true", wrapped, tt.wrap)
			}
			// Cause walks all the way to the root error; Unwrap peels a
			// single level, so it's only guaranteed to still match via Is.
			if Cause(wrapped) != tt.wrap {
				t.Errorf("Cause() = %v, want %v", Cause(wrapped), tt.wrap)
			}
			if !Is(Unwrap(wrapped), tt.wrap) {
				t.Errorf("Is(Unwrap(), %v) = false, want true", tt.wrap)
			}
		})
	}
}

func TestWrapfFormatsBeforeWrapping(t *testing.T) {
	cause := berrs.New("status 503")

	err := Wrapf(cause, "transport: downstream returned %d after %d attempts", 503, 3)

	want := "transport: downstream returned 503 after 3 attempts: status 503"
	if err.Error() != want {
		t.Errorf("Wrapf() error = %q, want %q", err.Error(), want)
	}
	if Cause(err) != cause {
		t.Errorf("Cause() = %v, want %v", Cause(err), cause)
	}
}

func TestWith(t *testing.T) {
	connErr := New("connection create failed")
	decodeErr := New("decode failed")
	streamErr := New("stream closed by peer")
	remoteErr := New("remote connection closed")
	closureErr := New("unexpected closure")

	tests := []struct {
		name    string
		err     error
		errs    []error
		wantErr bool
		is      error
	}{
		{"connection plus decode", connErr, []error{decodeErr, streamErr}, true, decodeErr},
		{"connection plus closure", connErr, []error{remoteErr, closureErr}, true, closureErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := With(tt.err, tt.errs...)
			if (err != nil) != tt.wantErr {
				t.Errorf("With() error = %v, wantErr %v", err, tt.wantErr)
			}

			// With joins a flat set of errors rather than chaining a
			// single cause, so every member should still match through
			// Is, including the first one passed in.
			if !Is(err, tt.err) {
				t.Errorf("Is() error = %v, want match for %v", err, tt.err)
			}
			if !Is(err, tt.is) {
				t.Errorf("Is() error = %v, want match for %v", err, tt.is)
			}
		})
	}
}

func TestIsTransientConnectionFailure(t *testing.T) {
	if !IsTransientConnectionFailure(ErrStreamClosed) {
		t.Error("ErrStreamClosed should be transient")
	}
	if !IsTransientConnectionFailure(ErrRemoteConnectionClosed) {
		t.Error("ErrRemoteConnectionClosed should be transient")
	}
	if IsTransientConnectionFailure(ErrConnectionCreateFailed) {
		t.Error("ErrConnectionCreateFailed should not be transient")
	}
	if !IsTransientConnectionFailure(Wrap(ErrRemoteConnectionClosed, "transport: attempt aborted")) {
		t.Error("IsTransientConnectionFailure should see through a Wrap the same way errors.Is does")
	}
}

func TestClientErrorCategoryAndRetriable(t *testing.T) {
	tests := []struct {
		code      int
		category  Category
		retriable bool
	}{
		{200, ServerErrorCategory, true},
		{400, ClientErrorCategory, false},
		{404, ClientErrorCategory, false},
		{499, ClientErrorCategory, false},
		{500, ServerErrorCategory, true},
		{503, ServerErrorCategory, true},
	}

	for _, tt := range tests {
		ce := NewClientError(tt.code, New("boom"))
		if ce.Category() != tt.category {
			t.Errorf("Category(%d) = %v, want %v", tt.code, ce.Category(), tt.category)
		}
		if ce.Retriable() != tt.retriable {
			t.Errorf("Retriable(%d) = %v, want %v", tt.code, ce.Retriable(), tt.retriable)
		}
	}
}
