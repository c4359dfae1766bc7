package provider

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ballotkit/voting-dapp/chain/internal/kms"
)

// KMSSigner signs voting transactions with an asymmetric secp256k1 key held in AWS KMS. The
// private key never leaves KMS; only transaction digests are sent for signing.
type KMSSigner struct {
	client   kms.Client
	kmsKeyID string

	mu sync.Mutex
	// ecdsaPublicKey caches the public key after the first successful lookup.
	ecdsaPublicKey *ecdsa.PublicKey
}

// NewKMSSigner creates a new KMSSigner using the provided KMS key ID, region, and AWS profile.
// Leave awsProfile empty to resolve credentials from the environment.
func NewKMSSigner(keyID, keyRegion, awsProfile string) (*KMSSigner, error) {
	client, err := kms.NewClient(kms.ClientConfig{
		KeyID:      keyID,
		KeyRegion:  keyRegion,
		AWSProfile: awsProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KMS Client: %w", err)
	}

	return newKMSSignerWithClient(client, keyID), nil
}

func newKMSSignerWithClient(client kms.Client, keyID string) *KMSSigner {
	return &KMSSigner{
		client:   client,
		kmsKeyID: keyID,
	}
}

// GetECDSAPublicKey retrieves the public key from KMS and converts it to its ECDSA representation.
func (s *KMSSigner) GetECDSAPublicKey() (*ecdsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ecdsaPublicKey != nil {
		return s.ecdsaPublicKey, nil
	}

	out, err := s.client.GetPublicKey(&kmslib.GetPublicKeyInput{
		KeyId: aws.String(s.kmsKeyID),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot get public key from KMS for KeyId=%s: %w", s.kmsKeyID, err)
	}

	var spki kms.SPKI
	if _, err = asn1.Unmarshal(out.PublicKey, &spki); err != nil {
		return nil, fmt.Errorf("cannot parse asn1 public key for KeyId=%s: %w", s.kmsKeyID, err)
	}

	pubKey, err := crypto.UnmarshalPubkey(spki.SubjectPublicKey.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cannot unmarshal public key bytes: %w", err)
	}
	s.ecdsaPublicKey = pubKey

	return pubKey, nil
}

// GetAddress returns the account address of the KMS key.
func (s *KMSSigner) GetAddress() (common.Address, error) {
	pubKey, err := s.GetECDSAPublicKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// GetTransactOpts returns transact opts whose sender is the KMS key's address and whose signer
// delegates to KMS.
func (s *KMSSigner) GetTransactOpts(
	ctx context.Context, chainID *big.Int,
) (*bind.TransactOpts, error) {
	if chainID == nil {
		return nil, errors.New("chainID is required")
	}

	pubKey, err := s.GetECDSAPublicKey()
	if err != nil {
		return nil, err
	}

	return &bind.TransactOpts{
		From:    crypto.PubkeyToAddress(*pubKey),
		Signer:  s.signerFunc(pubKey, chainID),
		Context: ctx,
	}, nil
}

func (s *KMSSigner) signerFunc(pubKey *ecdsa.PublicKey, chainID *big.Int) bind.SignerFn {
	var (
		pubKeyBytes = crypto.FromECDSAPub(pubKey)
		keyAddr     = crypto.PubkeyToAddress(*pubKey)
		signer      = types.LatestSignerForChainID(chainID)
	)

	return func(address common.Address, tx *types.Transaction) (*types.Transaction, error) {
		if address != keyAddr {
			return nil, bind.ErrNotAuthorized
		}

		var (
			digest = signer.Hash(tx).Bytes()
			mType  = kmslib.MessageTypeDigest
			algo   = kmslib.SigningAlgorithmSpecEcdsaSha256
		)

		out, err := s.client.Sign(&kmslib.SignInput{
			KeyId:            aws.String(s.kmsKeyID),
			SigningAlgorithm: &algo,
			MessageType:      &mType,
			Message:          digest,
		})
		if err != nil {
			return nil, fmt.Errorf("call to kms.Sign() failed on transaction: %w", err)
		}

		evmSig, err := kmsToEVMSig(out.Signature, pubKeyBytes, digest)
		if err != nil {
			return nil, fmt.Errorf("failed to convert KMS signature to Ethereum signature: %w", err)
		}

		return tx.WithSignature(signer, evmSig)
	}
}

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Div(secp256k1N, big.NewInt(2))
)

// kmsToEVMSig converts a DER encoded KMS signature into the 65 byte [R || S || V] form.
//
// S is normalised to the lower half of the curve order as required by EIP-2, and V is found by
// recovering the public key with each candidate recovery id.
func kmsToEVMSig(kmsSig, pubKeyBytes, digest []byte) ([]byte, error) {
	var sig kms.ECDSASig
	if _, err := asn1.Unmarshal(kmsSig, &sig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal KMS signature: %w", err)
	}

	sBytes := sig.S.Bytes
	s := new(big.Int).SetBytes(sBytes)
	if s.Cmp(secp256k1HalfN) > 0 {
		sBytes = new(big.Int).Sub(secp256k1N, s).Bytes()
	}

	rs := append(padTo32Bytes(sig.R.Bytes), padTo32Bytes(sBytes)...)
	for _, v := range []byte{0, 1} {
		evmSig := append(bytes.Clone(rs), v)

		recovered, err := crypto.Ecrecover(digest, evmSig)
		if err != nil {
			return nil, fmt.Errorf("failed to recover signature with v=%d: %w", v, err)
		}
		if bytes.Equal(recovered, pubKeyBytes) {
			return evmSig, nil
		}
	}

	return nil, errors.New("cannot reconstruct public key from sig")
}

// padTo32Bytes left pads buffer with zeros to 32 bytes, dropping any leading zero bytes first.
func padTo32Bytes(buffer []byte) []byte {
	buffer = bytes.TrimLeft(buffer, "\x00")
	if len(buffer) >= 32 {
		return buffer
	}

	return append(make([]byte, 32-len(buffer)), buffer...)
}
