package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// envelopeFlags are the request fields shared by process and evaluate.
type envelopeFlags struct {
	file       string
	model      string
	version    int
	state      string
	transition string
	id         string
}

func (f *envelopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "-", "entity JSON file, - reads stdin")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "entity model name")
	cmd.Flags().IntVar(&f.version, "version", 1, "entity model version")
	cmd.Flags().StringVarP(&f.state, "state", "s", "", "current workflow state")
	cmd.Flags().StringVarP(&f.transition, "transition", "t", "", "transition being run")
	cmd.Flags().StringVar(&f.id, "id", "", "technical entity id (random when empty)")
	_ = cmd.MarkFlagRequired("model")
}

func (f *envelopeFlags) read(cmd *cobra.Command) (uuid.UUID, entity.ModelSpec, json.RawMessage, error) {
	id := uuid.New()
	if f.id != "" {
		parsed, err := uuid.Parse(f.id)
		if err != nil {
			return uuid.Nil, entity.ModelSpec{}, nil, fmt.Errorf("invalid --id: %w", err)
		}
		id = parsed
	}
	var (
		raw []byte
		err error
	)
	if f.file == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(f.file)
	}
	if err != nil {
		return uuid.Nil, entity.ModelSpec{}, nil, fmt.Errorf("read entity: %w", err)
	}
	if !json.Valid(raw) {
		return uuid.Nil, entity.ModelSpec{}, nil, errors.New("entity file is not valid JSON")
	}
	return id, entity.ModelSpec{Name: f.model, Version: f.version}, raw, nil
}

func processCmd(opts *rootOptions) *cobra.Command {
	flags := &envelopeFlags{}
	cmd := &cobra.Command{
		Use:   "process <processor>",
		Short: "Run a processor and print the response envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, model, payload, err := flags.read(cmd)
			if err != nil {
				return err
			}
			req := processing.ProcessRequest{
				RequestID:     uuid.NewString(),
				ProcessorName: args[0],
				EntityID:      id,
				Model:         model,
				State:         flags.state,
				Transition:    flags.transition,
				Payload:       payload,
			}
			resp, runErr := opts.env.dispatcher.Process(cmd.Context(), req)
			if runErr != nil {
				resp = processing.FailedProcessResponse(req, runErr)
			}
			if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			return runErr
		},
	}
	flags.register(cmd)
	return cmd
}

func evaluateCmd(opts *rootOptions) *cobra.Command {
	flags := &envelopeFlags{}
	cmd := &cobra.Command{
		Use:   "evaluate <criterion>",
		Short: "Evaluate a criterion and print the response envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, model, payload, err := flags.read(cmd)
			if err != nil {
				return err
			}
			req := processing.CriterionRequest{
				RequestID:     uuid.NewString(),
				CriterionName: args[0],
				EntityID:      id,
				Model:         model,
				State:         flags.state,
				Transition:    flags.transition,
				Payload:       payload,
			}
			resp, runErr := opts.env.dispatcher.Evaluate(cmd.Context(), req)
			if runErr != nil {
				resp = processing.FailedCriterionResponse(req, runErr)
			}
			if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			return runErr
		},
	}
	flags.register(cmd)
	return cmd
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
