package batch

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
)

const (
	// BlobFieldElements is the number of field elements of a blob
	BlobFieldElements = 4096
	// BytesPerFieldElement is the number of payload bytes carried by one field element.
	// The most significant byte is always 0 so the element is below the BLS12-381 modulus.
	BytesPerFieldElement = 31
	// NBlobBytes is the payload capacity of a blob
	NBlobBytes = BlobFieldElements * BytesPerFieldElement

	primitiveRootOfUnity = 7
)

var (
	// ErrBlobTooLarge is returned when the payload doesn't fit one blob
	ErrBlobTooLarge = errors.New("blob payload too large")
	// ErrClaimMismatch is returned when the kzg proof claims another evaluation than the barycentric one
	ErrClaimMismatch = errors.New("kzg claim doesn't match the polynomial evaluation")
)

// PointEvaluation binds the blob to the batch: the blob polynomial evaluated at a
// challenge derived from the batch data
type PointEvaluation struct {
	VersionedHash common.Hash        `json:"versioned_hash"`
	Commitment    kzg4844.Commitment `json:"commitment"`
	Proof         kzg4844.Proof      `json:"proof"`
	// Challenge is z, Evaluation is p(z), both 32 bytes big endian
	Challenge  common.Hash `json:"challenge"`
	Evaluation common.Hash `json:"evaluation"`
	// Coefficients are the blob field elements, in evaluation form
	Coefficients []fr.Element `json:"-"`
}

// ToBlob packs payload into a blob, 31 bytes per field element
func ToBlob(payload []byte) (*kzg4844.Blob, error) {
	if len(payload) > NBlobBytes {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrBlobTooLarge, len(payload), NBlobBytes)
	}
	blob := new(kzg4844.Blob)
	for i := 0; i*BytesPerFieldElement < len(payload); i++ {
		end := (i + 1) * BytesPerFieldElement
		if end > len(payload) {
			end = len(payload)
		}
		copy(blob[i*fr.Bytes+1:], payload[i*BytesPerFieldElement:end])
	}
	return blob, nil
}

// ComputePointEvaluation compresses the batch payload into a blob and evaluates the blob
// polynomial at the challenge keccak(ChallengePreimage) mod r. Same data, same result.
func ComputePointEvaluation(data *BatchData, compressor Compressor) (*PointEvaluation, error) {
	payload, err := compressor.Compress(data.BlobPayload())
	if err != nil {
		return nil, fmt.Errorf("error compressing blob payload: %w", err)
	}
	blob, err := ToBlob(payload)
	if err != nil {
		return nil, err
	}

	commitment, err := kzg4844.BlobToCommitment(blob)
	if err != nil {
		return nil, fmt.Errorf("error computing blob commitment: %w", err)
	}
	versionedHash := common.Hash(kzg4844.CalcBlobHashV1(sha256.New(), &commitment))

	var z fr.Element
	z.SetBytes(crypto.Keccak256(data.ChallengePreimage(versionedHash)))

	coefficients := blobCoefficients(blob)
	y := evaluate(coefficients, &z)

	point := kzg4844.Point(z.Bytes())
	proof, claim, err := kzg4844.ComputeProof(blob, point)
	if err != nil {
		return nil, fmt.Errorf("error computing kzg proof: %w", err)
	}
	if claim != kzg4844.Claim(y.Bytes()) {
		return nil, fmt.Errorf("%w: claim %x, evaluation %x", ErrClaimMismatch, claim, y.Bytes())
	}

	return &PointEvaluation{
		VersionedHash: versionedHash,
		Commitment:    commitment,
		Proof:         proof,
		Challenge:     z.Bytes(),
		Evaluation:    y.Bytes(),
		Coefficients:  coefficients,
	}, nil
}

func blobCoefficients(blob *kzg4844.Blob) []fr.Element {
	res := make([]fr.Element, BlobFieldElements)
	for i := range res {
		res[i].SetBytes(blob[i*fr.Bytes : (i+1)*fr.Bytes])
	}
	return res
}

// evaluate computes p(z) of the polynomial given by its evaluations over the
// bit-reversed roots of unity, with the barycentric formula:
// p(z) = (z^N - 1) / N * sum(f_i * w_i / (z - w_i))
func evaluate(coefficients []fr.Element, z *fr.Element) fr.Element {
	roots := rootsOfUnity()

	denominators := make([]fr.Element, len(roots))
	for i := range roots {
		denominators[i].Sub(z, &roots[i])
		if denominators[i].IsZero() {
			// z is in the domain
			return coefficients[i]
		}
	}
	inverses := fr.BatchInvert(denominators)

	var sum, term fr.Element
	for i := range roots {
		term.Mul(&coefficients[i], &roots[i])
		term.Mul(&term, &inverses[i])
		sum.Add(&sum, &term)
	}

	var zN, n, factor fr.Element
	zN.Exp(*z, big.NewInt(BlobFieldElements))
	factor.SetOne()
	factor.Sub(&zN, &factor)
	n.SetUint64(BlobFieldElements)
	n.Inverse(&n)
	factor.Mul(&factor, &n)

	var res fr.Element
	res.Mul(&sum, &factor)
	return res
}

var (
	roots     []fr.Element
	rootsOnce sync.Once
)

// rootsOfUnity returns the BlobFieldElements-th roots of unity in bit-reversed order
func rootsOfUnity() []fr.Element {
	rootsOnce.Do(func() {
		exponent := new(big.Int).Sub(fr.Modulus(), big.NewInt(1))
		exponent.Div(exponent, big.NewInt(BlobFieldElements))

		var generator fr.Element
		generator.SetUint64(primitiveRootOfUnity)
		generator.Exp(generator, exponent)

		natural := make([]fr.Element, BlobFieldElements)
		natural[0].SetOne()
		for i := 1; i < BlobFieldElements; i++ {
			natural[i].Mul(&natural[i-1], &generator)
		}

		logN := bits.TrailingZeros(BlobFieldElements)
		roots = make([]fr.Element, BlobFieldElements)
		for i := range natural {
			j := bits.Reverse32(uint32(i)) >> (32 - logN)
			roots[j] = natural[i]
		}
	})
	return roots
}
