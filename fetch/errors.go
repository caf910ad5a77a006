package fetch

import (
	"errors"
	"fmt"
)

// ErrDomainNotAllowed indicates a request for a host outside the allow-list.
type ErrDomainNotAllowed struct {
	Host string
}

func (e ErrDomainNotAllowed) Error() string {
	return fmt.Sprintf("domain_not_allowed: %s", e.Host)
}

// ErrUpstream indicates the relay reported a non-success upstream response.
type ErrUpstream struct {
	Status int
	Err    error
}

func (e ErrUpstream) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream: status %d", e.Status)
}

func (e ErrUpstream) Unwrap() error {
	return e.Err
}

// ErrNetwork indicates the relay itself was unreachable.
type ErrNetwork struct {
	Err error
}

func (e ErrNetwork) Error() string {
	return fmt.Errorf("network: %w", e.Err).Error()
}

func (e ErrNetwork) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates the relay exceeded its bounded wait.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrorTypeLabel maps a fetch error to a stable label for metrics and logs.
func ErrorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var notAllowed ErrDomainNotAllowed
	if errors.As(err, &notAllowed) {
		return "domain_not_allowed"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var network ErrNetwork
	if errors.As(err, &network) {
		return "network"
	}
	var upstream ErrUpstream
	if errors.As(err, &upstream) {
		return "upstream"
	}
	return "other"
}
