package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// ErrUserRejected the wallet owner declined to sign the transaction
var ErrUserRejected = errors.New("transaction rejected by user")

// EncryptedInput an FHE encrypted contract input registered with the relayer
type EncryptedInput struct {
	// Handle the external ciphertext handle passed to the contract
	Handle common.Hash
	// Proof the input proof accompanying the handle
	Proof []byte
}

// Relayer encrypts contract inputs through the FHE relayer
type Relayer interface {
	/*
		EncryptUint16 encrypt a uint16 input for one contract and caller

			@param ctx context.Context - execution context
			@param contract common.Address - the contract which will consume the input
			@param account common.Address - the account submitting the input
			@param value uint16 - the plain value
			@returns the encrypted input
	*/
	EncryptUint16(
		ctx context.Context, contract common.Address, account common.Address, value uint16,
	) (EncryptedInput, error)
}

// Transactor signs and submits transactions for the connected wallet
type Transactor interface {
	/*
		SendTransaction sign and submit a contract call

			@param ctx context.Context - execution context
			@param from common.Address - the sending account
			@param to common.Address - the contract
			@param calldata []byte - ABI encoded call
			@returns transaction hash. ErrUserRejected if the wallet declined.
	*/
	SendTransaction(
		ctx context.Context, from common.Address, to common.Address, calldata []byte,
	) (common.Hash, error)
}

// HealthVault HealthVault contract client
type HealthVault interface {
	/*
		CreateRecordFromExternal register a record on chain with its encrypted allergy code
		and risk score

			@param ctx context.Context - execution context
			@param account common.Address - the patient account
			@param cid string - the record content ID
			@param allergyCode uint16 - allergy code
			@param riskScore uint16 - risk score
			@returns transaction hash
	*/
	CreateRecordFromExternal(
		ctx context.Context, account common.Address, cid string, allergyCode uint16, riskScore uint16,
	) (common.Hash, error)

	/*
		GrantAccess grant or withdraw a doctor's access to the patient's records

			@param ctx context.Context - execution context
			@param account common.Address - the patient account
			@param doctor common.Address - the doctor
			@param granted bool - whether access is granted
			@returns transaction hash
	*/
	GrantAccess(
		ctx context.Context, account common.Address, doctor common.Address, granted bool,
	) (common.Hash, error)

	/*
		AddRiskDelta add an encrypted delta to a record's risk score

			@param ctx context.Context - execution context
			@param account common.Address - the submitting account
			@param recordID *big.Int - on chain record ID
			@param delta uint16 - the delta
			@returns transaction hash
	*/
	AddRiskDelta(
		ctx context.Context, account common.Address, recordID *big.Int, delta uint16,
	) (common.Hash, error)

	/*
		RequestRiskDecrypt ask the decryption oracle to reveal a record's risk score

			@param ctx context.Context - execution context
			@param account common.Address - the submitting account
			@param recordID *big.Int - on chain record ID
			@returns transaction hash
	*/
	RequestRiskDecrypt(
		ctx context.Context, account common.Address, recordID *big.Int,
	) (common.Hash, error)
}

// HealthVaultParams contract client parameters
type HealthVaultParams struct {
	// Contract the deployed contract address
	Contract common.Address `validate:"-"`
	// Relayer FHE input relayer
	Relayer Relayer `validate:"required"`
	// Transactor wallet transaction submitter
	Transactor Transactor `validate:"required"`
}

// healthVaultImpl implements HealthVault
type healthVaultImpl struct {
	goutils.Component
	contractABI abi.ABI
	HealthVaultParams
}

/*
NewHealthVault define a HealthVault contract client

	@param params HealthVaultParams - client parameters
	@returns client
*/
func NewHealthVault(params HealthVaultParams) (HealthVault, error) {
	if err := validator.New().Struct(&params); err != nil {
		return nil, fmt.Errorf("invalid contract client parameters [%w]", err)
	}
	if params.Contract == (common.Address{}) {
		return nil, fmt.Errorf("contract address not set")
	}

	parsed, err := abi.JSON(strings.NewReader(HealthVaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI [%w]", err)
	}

	return &healthVaultImpl{
		Component: goutils.Component{
			LogTags: log.Fields{
				"module": "chain", "component": "health-vault", "contract": params.Contract.Hex(),
			},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		contractABI:       parsed,
		HealthVaultParams: params,
	}, nil
}

// submit encode a method call and send it
func (c *healthVaultImpl) submit(
	ctx context.Context, account common.Address, method string, args ...interface{},
) (common.Hash, error) {
	calldata, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode '%s' call [%w]", method, err)
	}

	txHash, err := c.Transactor.SendTransaction(ctx, account, c.Contract, calldata)
	if err != nil {
		return common.Hash{}, fmt.Errorf("'%s' transaction failed [%w]", method, err)
	}

	log.WithFields(c.GetLogTagsForContext(ctx)).
		WithField("method", method).
		WithField("account", account.Hex()).
		WithField("tx", txHash.Hex()).
		Debug("Submitted transaction")
	return txHash, nil
}

// encrypt encrypt a uint16 input for the method
func (c *healthVaultImpl) encrypt(
	ctx context.Context, account common.Address, name string, value uint16,
) (EncryptedInput, error) {
	encrypted, err := c.Relayer.EncryptUint16(ctx, c.Contract, account, value)
	if err != nil {
		return EncryptedInput{}, fmt.Errorf("failed to encrypt '%s' [%w]", name, err)
	}
	return encrypted, nil
}

func (c *healthVaultImpl) CreateRecordFromExternal(
	ctx context.Context, account common.Address, cid string, allergyCode uint16, riskScore uint16,
) (common.Hash, error) {
	allergy, err := c.encrypt(ctx, account, "allergy code", allergyCode)
	if err != nil {
		return common.Hash{}, err
	}
	risk, err := c.encrypt(ctx, account, "risk score", riskScore)
	if err != nil {
		return common.Hash{}, err
	}
	return c.submit(
		ctx,
		account,
		"createRecordFromExternal",
		cid,
		[32]byte(allergy.Handle),
		allergy.Proof,
		[32]byte(risk.Handle),
		risk.Proof,
	)
}

func (c *healthVaultImpl) GrantAccess(
	ctx context.Context, account common.Address, doctor common.Address, granted bool,
) (common.Hash, error) {
	return c.submit(ctx, account, "grantAccess", doctor, granted)
}

func (c *healthVaultImpl) AddRiskDelta(
	ctx context.Context, account common.Address, recordID *big.Int, delta uint16,
) (common.Hash, error) {
	encrypted, err := c.encrypt(ctx, account, "risk delta", delta)
	if err != nil {
		return common.Hash{}, err
	}
	return c.submit(ctx, account, "addRiskDelta", recordID, [32]byte(encrypted.Handle))
}

func (c *healthVaultImpl) RequestRiskDecrypt(
	ctx context.Context, account common.Address, recordID *big.Int,
) (common.Hash, error) {
	return c.submit(ctx, account, "requestRiskDecrypt", recordID)
}

/*
ParseAddress parse a hex account address

	@param address string - 0x prefixed hex address
	@returns the address
*/
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("'%s' is not a hex address", address)
	}
	return common.HexToAddress(address), nil
}
