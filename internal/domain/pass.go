package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IngestCounts summarises one source of a store-trader-data step.
type IngestCounts struct {
	Fetched    int  `json:"fetched"`
	Dropped    int  `json:"dropped"`
	Inserted   int  `json:"inserted"`
	Duplicates int  `json:"duplicates"`
	Skipped    int  `json:"skipped"`
	Failed     bool `json:"failed,omitempty"`
}

// IngestReport covers every source fetched for a wallet in one pass.
type IngestReport struct {
	Activity  IngestCounts `json:"activity"`
	Positions IngestCounts `json:"positions"`
	Traded    IngestCounts `json:"traded"`
	Value     IngestCounts `json:"value"`
}

// CandidateOutcome describes what happened to one sized candidate.
type CandidateOutcome struct {
	ConditionID  string          `json:"conditionId"`
	Asset        string          `json:"asset"`
	SourceTxHash string          `json:"sourceTxHash"`
	Size         decimal.Decimal `json:"size"`
	OrderHash    string          `json:"orderHash,omitempty"`
	Status       OrderStatus     `json:"status"`
	Error        string          `json:"error,omitempty"`
}

// PassReport is the summary of one pipeline pass.
type PassReport struct {
	ID          string             `json:"id"`
	Target      string             `json:"target"`
	Epoch       Epoch              `json:"epoch"`
	Cutoff      time.Time          `json:"cutoff"`
	StartedAt   time.Time          `json:"startedAt"`
	FinishedAt  time.Time          `json:"finishedAt"`
	Ingest      IngestReport       `json:"ingest"`
	Collateral  decimal.Decimal    `json:"collateral"`
	Candidates  int                `json:"candidates"`
	Replicated  int                `json:"alreadyReplicated"`
	Sized       int                `json:"sized"`
	Submitted   int                `json:"submitted"`
	Rejected    int                `json:"rejected"`
	Failed      int                `json:"failed"`
	DryRun      bool               `json:"dryRun,omitempty"`
	Outcomes    []CandidateOutcome `json:"outcomes"`
}
