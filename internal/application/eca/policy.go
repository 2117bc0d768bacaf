package eca

import (
	"time"
)

// FailurePolicy decides what a malformed line item does to its request
type FailurePolicy string

const (
	// PolicyContinue records the item as failed and processes the rest
	PolicyContinue FailurePolicy = "continue"
	// PolicyStrict rejects the whole request before any write
	PolicyStrict FailurePolicy = "strict"
)

// Options configures a Processor
type Options struct {
	// RequestTimeout bounds one invocation, including store calls
	RequestTimeout time.Duration
	// AuditTimeout bounds audit emission, which runs detached from the
	// request deadline
	AuditTimeout time.Duration
	// LedgerTTL is how long an event fingerprint is remembered for replay detection
	LedgerTTL time.Duration
	// Policies overrides the failure policy per action; actions not listed
	// use DefaultPolicy
	Policies      map[string]FailurePolicy
	DefaultPolicy FailurePolicy
}

// DefaultOptions returns the default processor options
func DefaultOptions() Options {
	return Options{
		RequestTimeout: 10 * time.Second,
		AuditTimeout:   2 * time.Second,
		LedgerTTL:      24 * time.Hour,
		DefaultPolicy:  PolicyContinue,
	}
}

// WithStrictActions returns a copy of o with the given actions set to PolicyStrict
func (o Options) WithStrictActions(actions ...string) Options {
	policies := make(map[string]FailurePolicy, len(o.Policies)+len(actions))
	for k, v := range o.Policies {
		policies[k] = v
	}
	for _, a := range actions {
		policies[a] = PolicyStrict
	}
	o.Policies = policies
	return o
}

// PolicyFor returns the failure policy of action
func (o Options) PolicyFor(action string) FailurePolicy {
	if p, ok := o.Policies[action]; ok {
		return p
	}
	if o.DefaultPolicy == "" {
		return PolicyContinue
	}
	return o.DefaultPolicy
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = d.RequestTimeout
	}
	if o.AuditTimeout <= 0 {
		o.AuditTimeout = d.AuditTimeout
	}
	if o.LedgerTTL <= 0 {
		o.LedgerTTL = d.LedgerTTL
	}
	if o.DefaultPolicy == "" {
		o.DefaultPolicy = d.DefaultPolicy
	}
	return o
}
