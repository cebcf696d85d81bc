package journals

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID   int64
	Debit       float64
	Credit      float64
	Description string
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	Date         time.Time
	Reference    string
	Description  string
	SourceModule string
	SourceID     uuid.UUID
	PostedBy     int64
	Lines        []PostingLineInput
}

// Validate ensures posting input meets the balance invariant before any
// write happens.
func (in PostingInput) Validate() error {
	if in.Date.IsZero() {
		return &shared.ValidationError{Field: "date", Msg: "required"}
	}
	if in.SourceModule == "" {
		return &shared.ValidationError{Field: "source_module", Msg: "required"}
	}
	if in.SourceID == uuid.Nil {
		return &shared.ValidationError{Field: "source_id", Msg: "required"}
	}
	if len(in.Lines) == 0 {
		return &shared.ValidationError{Field: "lines", Msg: "journal entry requires lines"}
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return &shared.ValidationError{Field: "lines", Msg: lineMsg(idx, "missing account")}
		}
		if line.Debit < 0 || line.Credit < 0 {
			return &shared.ValidationError{Field: "lines", Msg: lineMsg(idx, "negative amount")}
		}
		if line.Debit > 0 && line.Credit > 0 {
			return &shared.ValidationError{Field: "lines", Msg: lineMsg(idx, "cannot be both debit and credit")}
		}
		if line.Debit == 0 && line.Credit == 0 {
			return &shared.ValidationError{Field: "lines", Msg: lineMsg(idx, "zero amount")}
		}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) > shared.BalanceTolerance {
		return &shared.UnbalancedError{Debit: debit, Credit: credit}
	}
	return nil
}

func lineMsg(idx int, msg string) string {
	return fmt.Sprintf("line %d %s", idx, msg)
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID int64
	ActorID int64
	Memo    string
	Date    *time.Time
}
