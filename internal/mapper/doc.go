// Package mapper implements the streaming seed-and-extend engine that
// maps a live signal stream onto the reference index.
//
// ARCHITECTURE:
//
// One Mapper per device channel. All per-channel mutation happens in the
// caller's goroutine: the contract is single-writer-per-instance, at most
// one in-flight operation per channel, so the engine needs no internal
// locking. Channels run on parallel workers; the Runtime (parameters,
// pore model, index, reference table) is shared read-only between them.
//
// Event processing flow:
//  1. Raw samples are fed to the segmenter, which emits discrete events.
//  2. The normalizer scales the event mean onto the model level space.
//  3. Every k-mer is scored against the normalized event.
//  4. Each live hypothesis spawns progressing children through one
//     backward-extension step of the index, plus a stalled child that
//     keeps its range. Children with an empty range are dropped
//     silently - that is pruning, not an error.
//  5. New source hypotheses start at k-mer ranges not represented this
//     event.
//  6. If the generation exceeds the frontier cap it is ranked and
//     truncated to the top paths.
//  7. Surviving parents that satisfy seed validity submit their range to
//     the seed tracker; when the best cluster clears both confidence
//     floors the read resolves to SUCCESS.
//
// Frontier generations are double-buffered and swapped, not copied, each
// event. Probability-sum buffers live in an arena addressed by handles;
// exactly one live owner exists per buffer and it is released exactly
// once, including across generation swaps, truncation, and read resets.
//
// Failure is a state, not an error: budget exhaustion and an emptied
// frontier degrade to FAILURE and the channel waits for the next read.
package mapper
