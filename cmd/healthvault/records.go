package main

import (
	"context"
	"fmt"

	"github.com/alwitt/healthvault"
	"github.com/alwitt/healthvault/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// recordView a record with its decoded fields
type recordView struct {
	models.HealthRecord
	Fields models.PlainPayload `json:"fields"`
}

func newRecordsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Health record operations",
	}
	cmd.AddCommand(newRecordsListCommand(opts))
	cmd.AddCommand(newRecordsGetCommand(opts))
	cmd.AddCommand(newRecordsAddCommand(opts))
	cmd.AddCommand(newRecordsDeleteCommand(opts))
	return cmd
}

func newRecordsListCommand(opts *rootOptions) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(
				cmd, opts, func(ctx context.Context, client healthvault.Client) (interface{}, error) {
					records, err := client.Store(ctx)
					if err != nil {
						return nil, err
					}
					if cmd.Flags().Changed("owner") {
						return records.ListByOwner(ctx, owner)
					}
					return records.ListAll(ctx)
				},
			)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only records of this owner address")
	return cmd
}

func newRecordsGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <record-id>",
		Short: "Show one record with its decoded fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(
				cmd, opts, func(ctx context.Context, client healthvault.Client) (interface{}, error) {
					record, fields, found, err := client.ReadRecord(ctx, args[0])
					if err != nil {
						return nil, err
					}
					if !found {
						return nil, fmt.Errorf("record %s not found", args[0])
					}
					return recordView{HealthRecord: record, Fields: fields}, nil
				},
			)
		},
	}
}

func newRecordsAddCommand(opts *rootOptions) *cobra.Command {
	request := healthvault.NewRecordRequest{}
	var note string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if request.ID == "" {
				request.ID = uuid.NewString()
			}
			if cmd.Flags().Changed("note") {
				request.Fields.Note = &note
			}
			return withClient(
				cmd, opts, func(ctx context.Context, client healthvault.Client) (interface{}, error) {
					record, _, err := client.CreateRecord(ctx, request)
					return record, err
				},
			)
		},
	}
	cmd.Flags().StringVar(&request.ID, "id", "", "record ID, generated when empty")
	cmd.Flags().StringVar(&request.Owner, "owner", "", "owner address")
	cmd.Flags().StringVar(&request.Fields.Complaint, "complaint", "", "complaint")
	cmd.Flags().StringVar(&request.Fields.Diagnosis, "diagnosis", "", "diagnosis")
	cmd.Flags().StringVar(&request.Fields.Medications, "medications", "", "medications")
	cmd.Flags().StringVar(&request.Fields.Allergy, "allergy", "", "allergy")
	cmd.Flags().StringVar(&note, "note", "", "note")
	cmd.Flags().Uint16Var(&request.AllergyCode, "allergy-code", 0, "allergy code for the contract")
	cmd.Flags().Uint16Var(&request.RiskScore, "risk-score", 0, "risk score for the contract")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newRecordsDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(
				cmd, opts, func(ctx context.Context, client healthvault.Client) (interface{}, error) {
					records, err := client.Store(ctx)
					if err != nil {
						return nil, err
					}
					deleted, err := records.Delete(ctx, args[0])
					return map[string]bool{"deleted": deleted}, err
				},
			)
		},
	}
}
