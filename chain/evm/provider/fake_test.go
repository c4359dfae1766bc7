package provider

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	kmslib "github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testKMSKeyID     = "123"
	testKMSKeyRegion = "us-east-1"
	// testPrivateKey is a well known development key. Never fund it on a real network.
	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

var testChainIDBig = big.NewInt(11155111)

// newFakeRPCServer returns a fake RPC server which always answers with a valid eth_blockNumber
// response.
//
// When the test is done, the server is closed automatically.
func newFakeRPCServer(t *testing.T) *httptest.Server {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

// alwaysFailingSignerGenerator is a SignerGenerator that always fails with assert.AnError.
type alwaysFailingSignerGenerator struct{}

func (alwaysFailingSignerGenerator) Generate(*big.Int) (*bind.TransactOpts, error) {
	return nil, assert.AnError
}

// recordingAuthorizer records the accounts it was asked to authorize and answers with err.
type recordingAuthorizer struct {
	err   error
	calls [][]common.Address
}

func (a *recordingAuthorizer) Authorize(_ context.Context, accounts []common.Address) error {
	a.calls = append(a.calls, accounts)

	return a.err
}

// mockKMSClient is a testify mock of kms.Client.
type mockKMSClient struct {
	mock.Mock
}

func (m *mockKMSClient) GetPublicKey(input *kmslib.GetPublicKeyInput) (*kmslib.GetPublicKeyOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*kmslib.GetPublicKeyOutput)

	return out, args.Error(1)
}

func (m *mockKMSClient) Sign(input *kmslib.SignInput) (*kmslib.SignOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*kmslib.SignOutput)

	return out, args.Error(1)
}

func newMockKMSClient(t *testing.T) *mockKMSClient {
	t.Helper()

	m := &mockKMSClient{}
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// testKMSKey returns the private key that plays the part of the key held by KMS.
func testKMSKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()

	key, err := crypto.HexToECDSA(testPrivateKey)
	require.NoError(t, err)

	return key
}

// testKMSPublicKey returns the public key of testKMSKey encoded the way KMS returns it.
func testKMSPublicKey(t *testing.T) []byte {
	t.Helper()

	pub := crypto.FromECDSAPub(&testKMSKey(t).PublicKey)
	der, err := asn1.Marshal(struct {
		AlgorithmIdentifier pkix.AlgorithmIdentifier
		SubjectPublicKey    asn1.BitString
	}{
		AlgorithmIdentifier: pkix.AlgorithmIdentifier{
			Algorithm: asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1},
		},
		SubjectPublicKey: asn1.BitString{Bytes: pub, BitLength: len(pub) * 8},
	})
	require.NoError(t, err)

	return der
}

// testKMSSign signs digest with testKMSKey and DER encodes the signature the way KMS does. When
// highS is set the S value is flipped to the upper half of the curve order.
func testKMSSign(t *testing.T, digest []byte, highS bool) []byte {
	t.Helper()

	sig, err := crypto.Sign(digest, testKMSKey(t))
	require.NoError(t, err)

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if highS {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	der, err := asn1.Marshal(struct{ R, S *big.Int }{R: r, S: s})
	require.NoError(t, err)

	return der
}
