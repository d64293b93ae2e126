package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"applicant-assessment-service/internal/config"
	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/infra/file"
	"applicant-assessment-service/internal/scoring"
)

// NewReplayCmd re-scores a stored result against a question bank and reports
// any field that no longer matches.
func NewReplayCmd(configPath *string) *cobra.Command {
	var recordID, bankPath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompute a stored result and compare it with what was saved",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), cmd.OutOrStdout(), cfg, recordID, bankPath)
		},
	}
	cmd.Flags().StringVar(&recordID, "record", "", "stored result id")
	cmd.Flags().StringVar(&bankPath, "bank", "", "question bank file (defaults to the bank the result was scored on)")
	_ = cmd.MarkFlagRequired("record")
	return cmd
}

type replayReport struct {
	RecordID   string        `json:"recordId"`
	BankID     string        `json:"questionBankId"`
	Mismatches []string      `json:"mismatches"`
	Replayed   domain.Result `json:"replayed"`
}

func runReplay(ctx context.Context, out io.Writer, cfg config.Config, recordID, bankPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	record, err := st.results.Get(ctx, recordID)
	if err != nil {
		return fmt.Errorf("load record %s: %w", recordID, err)
	}

	var bank domain.QuestionBank
	if bankPath != "" {
		bank, err = file.LoadFile(bankPath)
	} else {
		loader, lerr := questionLoader(cfg, st)
		if lerr != nil {
			return lerr
		}
		bankID := record.Result.QuestionBankID
		if bankID == "" {
			bankID = cfg.Questions.DefaultBank
		}
		bank, err = loader.LoadBank(ctx, bankID)
	}
	if err != nil {
		return err
	}

	replayed, mismatches := scoring.Replay(scoringConfig(cfg), record.Result, bank.EligibleQuestions())
	report := replayReport{RecordID: recordID, BankID: bank.ID, Mismatches: mismatches, Replayed: replayed}
	if report.Mismatches == nil {
		report.Mismatches = []string{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("record %s does not replay: %d mismatched fields", recordID, len(mismatches))
	}
	return nil
}
