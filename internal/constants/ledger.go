package constants

// EventKind identifies a ledger entry.
type EventKind string

const (
	EventOverrideGranted        EventKind = "override_granted"
	EventOverrideDenied         EventKind = "override_denied"
	EventWeeklyCountDiscrepancy EventKind = "weekly_count_discrepancy"
	EventWarningPresented       EventKind = "warning_presented"
	EventShutdownRequested      EventKind = "shutdown_requested"
	EventPlanBuilt              EventKind = "plan_built"
	EventConfigSaved            EventKind = "config_saved"
)
