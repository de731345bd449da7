// Package seal defines the shared error taxonomy for the sealvault pipeline.
//
// Every component reports failures as a *seal.Error carrying a stable Kind
// and RuleID. Callers decide retry behavior by Kind (see Retryable), never by
// matching message text.
package seal
