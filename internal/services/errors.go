package services

import (
	"errors"
	"fmt"
)

// Service errors
var (
	ErrAuth             = errors.New("provider authentication failed")
	ErrSkuNotFound      = errors.New("sku not found")
	ErrSkuRemoved       = errors.New("sku was removed from tracking")
	ErrAlreadyTracked   = errors.New("sku already tracked")
	ErrBusy             = errors.New("another run is in progress")
	ErrInvalidCron      = errors.New("invalid cron expression")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrScheduleExists   = errors.New("schedule already exists")
	ErrBuiltinSchedule  = errors.New("built-in schedules cannot be deleted")
	ErrConfigNotFound   = errors.New("search config not found")
	ErrUnknownConfigKey = errors.New("unknown config key")
	ErrValidation       = errors.New("validation failed")
)

// AuthError means no valid session token could be obtained
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%v: %v", ErrAuth, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrAuth) match
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// BusyError is returned when the run lock is held. Current describes the
// holder.
type BusyError struct {
	Current Runner
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%v: %s run started by %s at %s",
		ErrBusy, e.Current.Task, e.Current.Describe(), e.Current.StartedAt.Format("2006-01-02 15:04:05"))
}

// Is makes errors.Is(err, ErrBusy) match
func (e *BusyError) Is(target error) bool {
	return target == ErrBusy
}

// ConfigError reports a system config value that could not be used. The
// default was applied in its place.
type ConfigError struct {
	Key     string
	Value   string
	Missing bool
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Missing {
		return fmt.Sprintf("config %s is not set", e.Key)
	}
	return fmt.Sprintf("config %s=%q is invalid: %v", e.Key, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
