// Package vybiump2record builds Poseidon2 execution records for STARK trace
// generation.
//
// An execution record is the ordered log of every absorb, finalize and
// compress performed over BabyBear with the width-16 Poseidon2 permutation.
// Each event carries the exact permutation inputs and outputs together with
// synthetic memory reads, so a trace generator can replay it row by row and
// enforce its memory-consistency argument.
//
// # Features
//
// - Sponge hashing with a cursor carried across absorb calls
// - Two-to-one compression with the Merkle operand layout
// - Multi-absorb hash sessions with a session-local clock
// - Deterministic parallel construction
// - Structural validation and permutation re-verification
// - Trace layout and Tip5 record fingerprints
// - CBOR fixtures with Keccak-256 checksums
//
// # Quick Start
//
// Building a record from inputs:
//
//	recorder, err := vybiump2record.New(vybiump2record.DefaultConfig(), nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	inputs := vybiump2record.RandomInputs(1, 1000, 1000)
//	rec, err := recorder.BuildParallel(ctx, inputs)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := rec.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Hashing across several absorb calls:
//
//	session, err := recorder.NewSession(7, vybiump2record.NewElement(0), vybiump2record.NewElement(64))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	session.Absorb(header)
//	session.Absorb(body)
//	final, err := session.Finalize()
//	digest := final.Digest()
//
// # Configuration
//
// Configuration follows DefaultConfig and may be loaded from a file with
// LoadConfig. Environment variables prefixed with P2RECORD_ override file
// values, e.g. P2RECORD_WORKERS=4.
package vybiump2record
