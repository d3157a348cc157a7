package domain

// IncidentBrief is the input of an incident narrative summary.
type IncidentBrief struct {
	Content        string `json:"content"`
	StoreName      string `json:"store_name"`
	Date           string `json:"date"`
	FaultMajor     string `json:"fault_major"`
	FaultMid       string `json:"fault_mid"`
	FaultMinor     string `json:"fault_minor"`
	OCSCauseMajor  string `json:"ocs_cause_major"`
	OCSCauseMid    string `json:"ocs_cause_mid"`
	OCSCauseMinor  string `json:"ocs_cause_minor"`
	DepartmentMain string `json:"department_main"`
	Urgency        string `json:"urgency"`
}
