package reports

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteTrialBalanceCSV renders the trial balance as CSV with locale-aware
// number formatting.
func WriteTrialBalanceCSV(w io.Writer, tb TrialBalance) error {
	printer := message.NewPrinter(language.English)
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Code", "Name", "Type", "Debit", "Credit"}); err != nil {
		return err
	}
	for _, grp := range tb.Groups {
		for _, acc := range grp.Accounts {
			record := []string{
				acc.Code,
				acc.Name,
				acc.Type,
				printer.Sprintf("%.2f", acc.Debit),
				printer.Sprintf("%.2f", acc.Credit),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	totals := []string{
		"",
		"Total",
		"",
		printer.Sprintf("%.2f", tb.TotalDebit),
		printer.Sprintf("%.2f", tb.TotalCredit),
	}
	if err := cw.Write(totals); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
