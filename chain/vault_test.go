package chain_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/alwitt/healthvault/chain"
	mockchain "github.com/alwitt/healthvault/mocks/chain"
	"github.com/apex/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// decodeCall split calldata into the method and its arguments
func decodeCall(t *testing.T, calldata []byte) (string, []interface{}) {
	assert := assert.New(t)

	parsed, err := abi.JSON(strings.NewReader(chain.HealthVaultABI))
	assert.Nil(err)
	method, err := parsed.MethodById(calldata[:4])
	assert.Nil(err)
	args, err := method.Inputs.Unpack(calldata[4:])
	assert.Nil(err)
	return method.Name, args
}

func TestHealthVaultInit(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	// Case 0: missing dependencies
	{
		_, err := chain.NewHealthVault(chain.HealthVaultParams{
			Contract: common.HexToAddress("0x01"),
		})
		assert.Error(err)
	}

	// Case 1: missing contract
	{
		_, err := chain.NewHealthVault(chain.HealthVaultParams{
			Relayer:    mockchain.NewRelayer(t),
			Transactor: mockchain.NewTransactor(t),
		})
		assert.Error(err)
	}
}

func TestHealthVaultCalls(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	contract := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	patient := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	doctor := common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")

	mockRelayer := mockchain.NewRelayer(t)
	mockTransactor := mockchain.NewTransactor(t)

	uut, err := chain.NewHealthVault(chain.HealthVaultParams{
		Contract: contract, Relayer: mockRelayer, Transactor: mockTransactor,
	})
	assert.Nil(err)

	var lastCall []byte
	captureCall := func(args mock.Arguments) {
		calldata, ok := args.Get(3).([]byte)
		assert.True(ok)
		lastCall = calldata
	}

	// ------------------------------------------------------------------------------------
	// Case 0: create record
	allergy := chain.EncryptedInput{Handle: common.HexToHash("0xaa01"), Proof: []byte{1, 2, 3}}
	risk := chain.EncryptedInput{Handle: common.HexToHash("0xbb02"), Proof: []byte{4, 5}}
	mockRelayer.On(
		"EncryptUint16", mock.Anything, contract, patient, uint16(12),
	).Return(allergy, nil).Once()
	mockRelayer.On(
		"EncryptUint16", mock.Anything, contract, patient, uint16(70),
	).Return(risk, nil).Once()
	txHash := common.HexToHash("0x1234")
	mockTransactor.On(
		"SendTransaction", mock.Anything, patient, contract, mock.AnythingOfType("[]uint8"),
	).Run(captureCall).Return(txHash, nil).Once()

	hash, err := uut.CreateRecordFromExternal(utCtx, patient, "record-1", 12, 70)
	assert.Nil(err)
	assert.Equal(txHash, hash)
	{
		method, args := decodeCall(t, lastCall)
		assert.Equal("createRecordFromExternal", method)
		assert.Equal("record-1", args[0])
		assert.Equal([32]byte(allergy.Handle), args[1])
		assert.Equal(allergy.Proof, args[2])
		assert.Equal([32]byte(risk.Handle), args[3])
		assert.Equal(risk.Proof, args[4])
	}

	// ------------------------------------------------------------------------------------
	// Case 1: grant and revoke
	for _, granted := range []bool{true, false} {
		mockTransactor.On(
			"SendTransaction", mock.Anything, patient, contract, mock.AnythingOfType("[]uint8"),
		).Run(captureCall).Return(txHash, nil).Once()

		_, err := uut.GrantAccess(utCtx, patient, doctor, granted)
		assert.Nil(err)
		method, args := decodeCall(t, lastCall)
		assert.Equal("grantAccess", method)
		assert.Equal(doctor, args[0])
		assert.Equal(granted, args[1])
	}

	// ------------------------------------------------------------------------------------
	// Case 2: risk delta
	delta := chain.EncryptedInput{Handle: common.HexToHash("0xcc03")}
	mockRelayer.On(
		"EncryptUint16", mock.Anything, contract, doctor, uint16(5),
	).Return(delta, nil).Once()
	mockTransactor.On(
		"SendTransaction", mock.Anything, doctor, contract, mock.AnythingOfType("[]uint8"),
	).Run(captureCall).Return(txHash, nil).Once()

	_, err = uut.AddRiskDelta(utCtx, doctor, big.NewInt(7), 5)
	assert.Nil(err)
	{
		method, args := decodeCall(t, lastCall)
		assert.Equal("addRiskDelta", method)
		assert.Equal(0, big.NewInt(7).Cmp(args[0].(*big.Int)))
		assert.Equal([32]byte(delta.Handle), args[1])
	}

	// ------------------------------------------------------------------------------------
	// Case 3: decrypt request
	mockTransactor.On(
		"SendTransaction", mock.Anything, patient, contract, mock.AnythingOfType("[]uint8"),
	).Run(captureCall).Return(txHash, nil).Once()

	_, err = uut.RequestRiskDecrypt(utCtx, patient, big.NewInt(7))
	assert.Nil(err)
	{
		method, args := decodeCall(t, lastCall)
		assert.Equal("requestRiskDecrypt", method)
		assert.Equal(0, big.NewInt(7).Cmp(args[0].(*big.Int)))
	}

	// ------------------------------------------------------------------------------------
	// Case 4: wallet rejects
	mockTransactor.On(
		"SendTransaction", mock.Anything, patient, contract, mock.AnythingOfType("[]uint8"),
	).Return(common.Hash{}, chain.ErrUserRejected).Once()

	_, err = uut.GrantAccess(utCtx, patient, doctor, true)
	assert.True(errors.Is(err, chain.ErrUserRejected))

	// Case 5: relayer failure stops before any transaction
	mockRelayer.On(
		"EncryptUint16", mock.Anything, contract, patient, uint16(1),
	).Return(chain.EncryptedInput{}, errors.New("relayer offline")).Once()

	_, err = uut.CreateRecordFromExternal(utCtx, patient, "record-2", 1, 2)
	assert.Error(err)
}

func TestParseAddress(t *testing.T) {
	assert := assert.New(t)

	addr, err := chain.ParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	assert.Nil(err)
	assert.Equal(common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), addr)

	_, err = chain.ParseAddress("0x1234...5678")
	assert.Error(err)
}
