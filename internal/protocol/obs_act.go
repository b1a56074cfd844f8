package protocol

// ACT (client -> server). Step must equal the step of the last OBS; a
// mismatch is answered with E_STALE.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Step            int    `json:"step"`
	Action          string `json:"action"`
}

// PREVIEW (client -> server) asks what an action would cost and yield if it
// succeeded. Nothing is resolved.
type PreviewReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Action          string `json:"action"`
}

// PREVIEW (server -> client)
type PreviewMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Step            int    `json:"step"`
	Action          string `json:"action"`
	CPCost          int    `json:"cp_cost"`
	DurabilityCost  int    `json:"durability_cost"`
	SuccessRate     int    `json:"success_rate"`
	ProgressGain    int    `json:"progress_gain"`
	QualityGain     int    `json:"quality_gain"`
}

// OBS (server -> client), sent after WELCOME and after every resolved ACT.
type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id"`
	Step            int    `json:"step"`

	Condition  string    `json:"condition"`
	Progress   int       `json:"progress"`
	Quality    int       `json:"quality"`
	Durability int       `json:"durability"`
	CP         int       `json:"cp"`
	Buffs      []BuffObs `json:"buffs"`
	Status     string    `json:"status"`
	HQChance   int       `json:"hq_chance"`
	Digest     string    `json:"digest"`

	Delineations     int  `json:"delineations,omitempty"`
	HeartAndSoulUsed bool `json:"heart_and_soul_used,omitempty"`

	Legal []string    `json:"legal"`
	Last  *OutcomeObs `json:"last,omitempty"`
}

type BuffObs struct {
	Kind      string `json:"kind"`
	Remaining int    `json:"remaining,omitempty"`
	Stacks    int    `json:"stacks,omitempty"`
}

type OutcomeObs struct {
	Action       string `json:"action"`
	Success      bool   `json:"success"`
	ProgressGain int    `json:"progress_gain"`
	QualityGain  int    `json:"quality_gain"`
	CPCost       int    `json:"cp_cost"`
	DurCost      int    `json:"durability_cost"`
	Repaired     int    `json:"repaired,omitempty"`
}
