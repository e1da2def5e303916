package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"hemotwin-backend/internal/bloodtest"
	"hemotwin-backend/internal/ocr"
	"hemotwin-backend/internal/ocr/ocrspace"
	"hemotwin-backend/internal/risk"
	"hemotwin-backend/internal/shared/config"
	"hemotwin-backend/internal/textsource"
)

type extractOutput struct {
	Record  bloodtest.LabRecord `json:"record"`
	Missing []string            `json:"missing"`
	Text    string              `json:"text,omitempty"`
}

// newProvider is replaced in tests.
var newProvider = func(cfg config.Config) (ocr.Provider, error) {
	if cfg.OCRSpaceAPIKey == "" {
		return nil, errors.New("OCR_SPACE_API_KEY is required")
	}
	client, err := ocrspace.New(ocrspace.Config{
		APIKey:   cfg.OCRSpaceAPIKey,
		URL:      cfg.OCRSpaceURL,
		Language: cfg.OCRLanguage,
		Timeout:  cfg.OCRTimeout,
	})
	if err != nil {
		return nil, err
	}
	return ocr.NewRetrying(client, cfg.OCRMaxAttempts, cfg.OCRRetryDelay), nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "labscan",
		Short:         "Extract lab values from blood test reports and classify risk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExtractCmd(), newOCRCmd(), newClassifyCmd())
	return root
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract lab values from report text (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			data, err := io.ReadAll(io.LimitReader(r, textsource.MaxSourceBytes))
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			return writeExtraction(cmd.OutOrStdout(), string(data), false)
		},
	}
}

func newOCRCmd() *cobra.Command {
	var showText bool
	cmd := &cobra.Command{
		Use:   "ocr <image|pdf>",
		Short: "Read a report image through OCR.space and extract lab values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			provider, err := newProvider(config.Load())
			if err != nil {
				return err
			}
			src := textsource.New(nil, provider)
			name := filepath.Base(args[0])
			text, err := src.FromBytes(cmd.Context(), data, "", name)
			if err != nil {
				return err
			}
			return writeExtraction(cmd.OutOrStdout(), text, showText)
		},
	}
	cmd.Flags().BoolVar(&showText, "show-text", false, "include the recognized text in the output")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	var dob, sex, at string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify risk from lab values and patient profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			record := bloodtest.EmptyRecord()
			for _, metric := range bloodtest.Metrics {
				if !cmd.Flags().Changed(metric) {
					continue
				}
				v, err := cmd.Flags().GetFloat64(metric)
				if err != nil {
					return err
				}
				record[metric] = bloodtest.Found(v)
			}

			now := time.Now().UTC()
			if at != "" {
				parsed, err := time.Parse("2006-01-02", at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = parsed
			}

			assessment, err := risk.ClassifyAt(record, risk.Profile{DOB: dob, Sex: sex}, now)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), assessment)
		},
	}
	cmd.Flags().StringVar(&dob, "dob", "", "date of birth, dd/mm/yyyy")
	cmd.Flags().StringVar(&sex, "sex", "", "male or female")
	cmd.Flags().StringVar(&at, "at", "", "evaluate as of this date, yyyy-mm-dd")
	for _, metric := range bloodtest.Metrics {
		cmd.Flags().Float64(metric, 0, metric+" value")
	}
	return cmd
}

func writeExtraction(w io.Writer, text string, withText bool) error {
	rec := bloodtest.Extract(text, bloodtest.DefaultSpecs())
	out := extractOutput{Record: rec, Missing: rec.Missing(bloodtest.Metrics...)}
	if out.Missing == nil {
		out.Missing = []string{}
	}
	if withText {
		out.Text = text
	}
	return writeJSON(w, out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
