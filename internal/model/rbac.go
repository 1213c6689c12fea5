package model

// Role is one of the fixed set of operator roles. Role management lives in a
// separate system; at runtime the set and its permission grants are immutable.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleManager     Role = "manager"
	RoleLabUser     Role = "lab_user"
	RoleServiceUser Role = "service_user"
)

// Permission is an atomic capability tag checked against a role's granted
// set. Lookups for tags absent from the policy table are denied, never
// allowed by default.
type Permission string

const (
	PermViewDashboard       Permission = "VIEW_DASHBOARD"
	PermViewWarehouse       Permission = "VIEW_WAREHOUSE"
	PermManageWarehouse     Permission = "MANAGE_WAREHOUSE"
	PermViewInstruments     Permission = "VIEW_INSTRUMENTS"
	PermAddInstrument       Permission = "ADD_INSTRUMENT"
	PermManageInstruments   Permission = "MANAGE_INSTRUMENTS"
	PermReviewTestResults   Permission = "REVIEW_TEST_RESULTS"
	PermManageComments      Permission = "MANAGE_COMMENTS"
	PermManageRawResults    Permission = "MANAGE_RAW_RESULTS"
	PermViewConfiguration   Permission = "VIEW_CONFIGURATION"
	PermManageConfiguration Permission = "MANAGE_CONFIGURATION"
	PermForceSync           Permission = "FORCE_SYNC"
	PermViewAuditLogs       Permission = "VIEW_AUDIT_LOGS"
)
