package healthvault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/healthvault/chain"
	"github.com/alwitt/healthvault/config"
	"github.com/alwitt/healthvault/encryption"
	"github.com/alwitt/healthvault/models"
	"github.com/alwitt/healthvault/storage"
	"github.com/alwitt/healthvault/store"
	"github.com/apex/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// ErrChainNotConfigured the operation needs the contract, but none is configured
var ErrChainNotConfigured = errors.New("contract not configured")

// NewRecordRequest a new health record in plain text
type NewRecordRequest struct {
	// ID record ID
	ID string `validate:"required"`
	// Owner patient address
	Owner string `validate:"required"`
	// CreatedAt record creation time. Defaults to now.
	CreatedAt *time.Time
	// Fields plain text record fields
	Fields models.PlainPayload
	// AllergyCode allergy code submitted encrypted to the contract
	AllergyCode uint16
	// RiskScore risk score submitted encrypted to the contract
	RiskScore uint16
}

// Client health vault client keeping the local store in step with the contract
//
// When a contract is configured every change is submitted on chain first. A rejected
// transaction leaves the local store untouched.
type Client interface {
	/*
		Store the shared health record store

			@param ctx context.Context - execution context
			@returns the store
	*/
	Store(ctx context.Context) (store.HealthRecordStore, error)

	/*
		CreateRecord encode and insert a new health record

			@param ctx context.Context - execution context
			@param request NewRecordRequest - the new record
			@returns the stored record, and the transaction hash if submitted on chain
	*/
	CreateRecord(
		ctx context.Context, request NewRecordRequest,
	) (models.HealthRecord, *common.Hash, error)

	/*
		ReadRecord fetch a record and decode its fields

			@param ctx context.Context - execution context
			@param recordID string - record ID
			@returns the record, its plain text fields, and whether it exists
	*/
	ReadRecord(
		ctx context.Context, recordID string,
	) (models.HealthRecord, models.PlainPayload, bool, error)

	/*
		GrantAccess give a doctor access to the patient's records

			@param ctx context.Context - execution context
			@param patient string - patient address
			@param doctor string - doctor address
			@returns the access log entry, and the transaction hash if submitted on chain
	*/
	GrantAccess(
		ctx context.Context, patient string, doctor string,
	) (models.AccessGrant, *common.Hash, error)

	/*
		RevokeAccess withdraw a doctor's access to the patient's records

			@param ctx context.Context - execution context
			@param patient string - patient address
			@param doctor string - doctor address
			@returns the revoked log entries, and the transaction hash if submitted on chain
	*/
	RevokeAccess(
		ctx context.Context, patient string, doctor string,
	) ([]models.AccessGrant, *common.Hash, error)

	/*
		AddRiskDelta add to the risk score of a record on chain

			@param ctx context.Context - execution context
			@param account string - submitting account
			@param contractID int64 - the record's contract ID
			@param delta uint16 - the delta
			@returns transaction hash
	*/
	AddRiskDelta(
		ctx context.Context, account string, contractID int64, delta uint16,
	) (common.Hash, error)

	/*
		RequestRiskDecrypt request the risk score of a record be decrypted on chain

			@param ctx context.Context - execution context
			@param account string - submitting account
			@param contractID int64 - the record's contract ID
			@returns transaction hash
	*/
	RequestRiskDecrypt(ctx context.Context, account string, contractID int64) (common.Hash, error)

	// Close release the store and its storage
	Close() error
}

// ClientParams client parameters
type ClientParams struct {
	// Config application configuration
	Config config.Config
	// Relayer FHE input relayer, needed when a contract is configured
	Relayer chain.Relayer
	// Transactor wallet transaction submitter, needed when a contract is configured
	Transactor chain.Transactor
}

// clientImpl implements Client
type clientImpl struct {
	goutils.Component

	validator     *validator.Validate
	persistence   storage.KeyValueStorage
	storeProvider *store.Provider
	codec         encryption.PayloadCodec
	vault         chain.HealthVault
}

/*
NewClient initialize a health vault client

	@param ctx context.Context - execution context
	@param params ClientParams - client parameters
	@returns the client
*/
func NewClient(ctx context.Context, params ClientParams) (Client, error) {
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}

	instance := &clientImpl{
		Component: goutils.Component{
			LogTags: log.Fields{"package": "healthvault", "module": "core", "component": "client"},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		validator: validator.New(),
	}

	var err error
	if params.Config.Chain.ContractAddress != "" {
		instance.vault, err = chain.NewHealthVault(chain.HealthVaultParams{
			Contract:   common.HexToAddress(params.Config.Chain.ContractAddress),
			Relayer:    params.Relayer,
			Transactor: params.Transactor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize contract client [%w]", err)
		}
	}

	instance.codec, err = NewPayloadCodec(ctx, params.Config.Codec)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payload codec [%w]", err)
	}

	instance.persistence, err = NewStorage(params.Config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage [%w]", err)
	}

	instance.storeProvider = NewStoreProvider(params.Config, instance.persistence)

	return instance, nil
}

func (c *clientImpl) Store(ctx context.Context) (store.HealthRecordStore, error) {
	return c.storeProvider.Get(ctx)
}

// chainAddresses parse addresses for a contract call
func chainAddresses(addresses ...string) ([]common.Address, error) {
	result := make([]common.Address, len(addresses))
	for idx, address := range addresses {
		parsed, err := chain.ParseAddress(address)
		if err != nil {
			return nil, err
		}
		result[idx] = parsed
	}
	return result, nil
}

func (c *clientImpl) CreateRecord(
	ctx context.Context, request NewRecordRequest,
) (models.HealthRecord, *common.Hash, error) {
	if err := c.validator.Struct(&request); err != nil {
		return models.HealthRecord{}, nil, fmt.Errorf("invalid new record [%w]", err)
	}

	records, err := c.Store(ctx)
	if err != nil {
		return models.HealthRecord{}, nil, err
	}

	payload, err := c.codec.EncodePayload(ctx, request.Fields)
	if err != nil {
		return models.HealthRecord{}, nil, fmt.Errorf("failed to encode record fields [%w]", err)
	}

	var txHash *common.Hash
	if c.vault != nil {
		addresses, err := chainAddresses(request.Owner)
		if err != nil {
			return models.HealthRecord{}, nil, err
		}
		hash, err := c.vault.CreateRecordFromExternal(
			ctx, addresses[0], request.ID, request.AllergyCode, request.RiskScore,
		)
		if err != nil {
			return models.HealthRecord{}, nil, err
		}
		txHash = &hash
	}

	newRecord := models.HealthRecord{
		ID:      request.ID,
		Owner:   request.Owner,
		Payload: datatypes.NewJSONType(payload),
	}
	if request.CreatedAt != nil {
		newRecord.CreatedAt = *request.CreatedAt
	}
	inserted, err := records.Insert(ctx, newRecord)
	if err != nil {
		return models.HealthRecord{}, txHash, err
	}
	return inserted, txHash, nil
}

func (c *clientImpl) ReadRecord(
	ctx context.Context, recordID string,
) (models.HealthRecord, models.PlainPayload, bool, error) {
	records, err := c.Store(ctx)
	if err != nil {
		return models.HealthRecord{}, models.PlainPayload{}, false, err
	}
	record, found, err := records.GetByID(ctx, recordID)
	if err != nil || !found {
		return models.HealthRecord{}, models.PlainPayload{}, found, err
	}
	plain, err := c.codec.DecodePayload(ctx, record.Payload.Data())
	if err != nil {
		return models.HealthRecord{}, models.PlainPayload{}, true, fmt.Errorf(
			"failed to decode record %s [%w]", recordID, err,
		)
	}
	return record, plain, true, nil
}

// submitGrant submit a grant or revoke on chain
func (c *clientImpl) submitGrant(
	ctx context.Context, patient string, doctor string, granted bool,
) (*common.Hash, error) {
	if c.vault == nil {
		return nil, nil
	}
	addresses, err := chainAddresses(patient, doctor)
	if err != nil {
		return nil, err
	}
	hash, err := c.vault.GrantAccess(ctx, addresses[0], addresses[1], granted)
	if err != nil {
		return nil, err
	}
	return &hash, nil
}

func (c *clientImpl) GrantAccess(
	ctx context.Context, patient string, doctor string,
) (models.AccessGrant, *common.Hash, error) {
	records, err := c.Store(ctx)
	if err != nil {
		return models.AccessGrant{}, nil, err
	}
	txHash, err := c.submitGrant(ctx, patient, doctor, true)
	if err != nil {
		return models.AccessGrant{}, nil, err
	}
	entry, err := records.Grant(ctx, patient, doctor)
	if err != nil {
		return models.AccessGrant{}, txHash, err
	}
	return entry, txHash, nil
}

func (c *clientImpl) RevokeAccess(
	ctx context.Context, patient string, doctor string,
) ([]models.AccessGrant, *common.Hash, error) {
	records, err := c.Store(ctx)
	if err != nil {
		return nil, nil, err
	}
	txHash, err := c.submitGrant(ctx, patient, doctor, false)
	if err != nil {
		return nil, nil, err
	}
	revoked, err := records.Revoke(ctx, patient, doctor)
	if err != nil {
		return nil, txHash, err
	}
	return revoked, txHash, nil
}

func (c *clientImpl) AddRiskDelta(
	ctx context.Context, account string, contractID int64, delta uint16,
) (common.Hash, error) {
	if c.vault == nil {
		return common.Hash{}, ErrChainNotConfigured
	}
	addresses, err := chainAddresses(account)
	if err != nil {
		return common.Hash{}, err
	}
	return c.vault.AddRiskDelta(ctx, addresses[0], big.NewInt(contractID), delta)
}

func (c *clientImpl) RequestRiskDecrypt(
	ctx context.Context, account string, contractID int64,
) (common.Hash, error) {
	if c.vault == nil {
		return common.Hash{}, ErrChainNotConfigured
	}
	addresses, err := chainAddresses(account)
	if err != nil {
		return common.Hash{}, err
	}
	return c.vault.RequestRiskDecrypt(ctx, addresses[0], big.NewInt(contractID))
}

func (c *clientImpl) Close() error {
	storeErr := c.storeProvider.Close()
	if c.persistence != nil {
		if err := c.persistence.Close(); err != nil {
			log.WithError(err).WithFields(c.GetLogTagsForContext(context.Background())).
				Error("Failed to close storage")
			if storeErr == nil {
				storeErr = err
			}
		}
	}
	return storeErr
}
