package riskerrors

import (
	"errors"
	"net/http"
	"testing"
)

func TestRiskError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RiskError
		want string
	}{
		{
			name: "without underlying error",
			err:  NotFound("regulation", "r1"),
			want: "[NOT_FOUND] resource not found",
		},
		{
			name: "with underlying error",
			err:  Upstream("active_edges", errors.New("connection refused")),
			want: "[UPSTREAM] upstream store failure: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRiskError_Unwrap(t *testing.T) {
	underlying := errors.New("timeout")
	err := Upstream("active_edges", underlying)

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}
}

func TestRiskError_WithDetails(t *testing.T) {
	err := Invalid("bad request")
	err.WithDetails("field", "weight").WithDetails("reason", "out of range")

	if len(err.Details) != 2 {
		t.Fatalf("Details length = %d, want 2", len(err.Details))
	}
	if err.Details["field"] != "weight" {
		t.Errorf("Details[field] = %v, want weight", err.Details["field"])
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("regulation", "r1")
	if err.Code != CodeNotFound {
		t.Errorf("Code = %v, want %v", err.Code, CodeNotFound)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusNotFound)
	}
	if err.Details["resource"] != "regulation" || err.Details["id"] != "r1" {
		t.Errorf("unexpected details: %#v", err.Details)
	}
}

func TestInvalidField(t *testing.T) {
	err := InvalidField("impact_weight", "must be non-negative")
	if err.Code != CodeInvalid {
		t.Errorf("Code = %v, want %v", err.Code, CodeInvalid)
	}
	if err.Details["field"] != "impact_weight" {
		t.Errorf("Details[field] = %v, want impact_weight", err.Details["field"])
	}
}

func TestConflict(t *testing.T) {
	err := Conflict("duplicate code within tenant")
	if err.Code != CodeConflict {
		t.Errorf("Code = %v, want %v", err.Code, CodeConflict)
	}
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusConflict)
	}
}

func TestUpstream(t *testing.T) {
	underlying := errors.New("dial tcp: timeout")
	err := Upstream("active_edges", underlying)
	if err.Code != CodeUpstream {
		t.Errorf("Code = %v, want %v", err.Code, CodeUpstream)
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusBadGateway)
	}
	if err.Err != underlying {
		t.Errorf("Err = %v, want %v", err.Err, underlying)
	}
}

func TestCancelled(t *testing.T) {
	err := Cancelled("propagate")
	if err.Code != CodeCancelled {
		t.Errorf("Code = %v, want %v", err.Code, CodeCancelled)
	}
	if err.HTTPStatus != http.StatusRequestTimeout {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusRequestTimeout)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{name: "matching risk error", err: NotFound("regulation", "r1"), code: CodeNotFound, want: true},
		{name: "mismatched code", err: NotFound("regulation", "r1"), code: CodeConflict, want: false},
		{name: "standard error", err: errors.New("plain"), code: CodeNotFound, want: false},
		{name: "nil error", err: nil, code: CodeNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "risk error", err: Conflict("locked"), want: http.StatusConflict},
		{name: "standard error", err: errors.New("plain"), want: http.StatusInternalServerError},
		{name: "nil error", err: nil, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
