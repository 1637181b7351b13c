package goGuard

import "time"

// Principal is an authenticated identity supplied by the caller's auth layer.
type Principal struct {
	ID string
}

// ActionKind is the closed set of audited action names.
type ActionKind string

const (
	ActionLogin             ActionKind = "login"
	ActionLogout            ActionKind = "logout"
	ActionSignup            ActionKind = "signup"
	ActionPasswordReset     ActionKind = "password_reset"
	ActionProfileUpdate     ActionKind = "profile_update"
	ActionSettingsUpdate    ActionKind = "settings_update"
	ActionMFAEnable         ActionKind = "mfa_enable"
	ActionMFADisable        ActionKind = "mfa_disable"
	ActionMFAVerify         ActionKind = "mfa_verify"
	ActionTransactionCreate ActionKind = "transaction_create"
	ActionTransactionUpdate ActionKind = "transaction_update"
	ActionTransactionDelete ActionKind = "transaction_delete"
	ActionBudgetCreate      ActionKind = "budget_create"
	ActionBudgetUpdate      ActionKind = "budget_update"
	ActionGoalCreate        ActionKind = "goal_create"
	ActionGoalUpdate        ActionKind = "goal_update"
	ActionGoalDelete        ActionKind = "goal_delete"
	ActionExportData        ActionKind = "export_data"
	ActionImportData        ActionKind = "import_data"
	ActionReportCreate      ActionKind = "report_create"
	ActionReportDelete      ActionKind = "report_delete"
)

var actionKinds = map[ActionKind]struct{}{
	ActionLogin:             {},
	ActionLogout:            {},
	ActionSignup:            {},
	ActionPasswordReset:     {},
	ActionProfileUpdate:     {},
	ActionSettingsUpdate:    {},
	ActionMFAEnable:         {},
	ActionMFADisable:        {},
	ActionMFAVerify:         {},
	ActionTransactionCreate: {},
	ActionTransactionUpdate: {},
	ActionTransactionDelete: {},
	ActionBudgetCreate:      {},
	ActionBudgetUpdate:      {},
	ActionGoalCreate:        {},
	ActionGoalUpdate:        {},
	ActionGoalDelete:        {},
	ActionExportData:        {},
	ActionImportData:        {},
	ActionReportCreate:      {},
	ActionReportDelete:      {},
}

// Valid reports whether a is one of the declared action kinds.
func (a ActionKind) Valid() bool {
	_, ok := actionKinds[a]
	return ok
}

// ParseActionKind converts s to an ActionKind, rejecting unknown names.
func ParseActionKind(s string) (ActionKind, bool) {
	a := ActionKind(s)
	return a, a.Valid()
}

// Metadata is a free-form tree attached to an audit event. Values may be strings,
// numbers, booleans, nil, slices or nested maps; anything else is stringified on
// recording.
type Metadata map[string]any

// AssuranceLevel is the strength of the current authentication session.
type AssuranceLevel string

const (
	// AAL1 is a single-factor session.
	AAL1 AssuranceLevel = "aal1"
	// AAL2 is a session with a confirmed second factor.
	AAL2 AssuranceLevel = "aal2"
)

// FactorStatus is the verification state of a registered factor.
type FactorStatus string

const (
	FactorUnverified FactorStatus = "unverified"
	FactorVerified   FactorStatus = "verified"
)

// FactorTypeTOTP is the only factor type the orchestrator enrolls and lists.
const FactorTypeTOTP = "totp"

// Factor is a registered second authentication method.
type Factor struct {
	ID           string
	FriendlyName string
	Type         string
	Status       FactorStatus
	CreatedAt    time.Time
}

// Enrollment is what the identity provider returns for a newly created factor.
type Enrollment struct {
	FactorID string
	Secret   string
	// QRCode is a presentable image payload, typically a PNG data URI.
	QRCode string
	URI    string
}

// Challenge is a short-lived verification attempt issued for a factor.
type Challenge struct {
	ID        string
	FactorID  string
	ExpiresAt time.Time
}
