// Package pipeline wires the policy store, key-server quorum and blob store
// into the two top-level flows: encrypt-for-parties and decrypt.
//
// The Encryptor provisions an on-chain access policy, seals the document
// under a threshold-escrowed key, uploads the artifact and publishes the
// binding. The Decryptor authenticates a session, obtains an approval proof
// and asks the key servers to release the document key.
//
// Transient ledger and quorum failures retry with bounded backoff, step by
// step, so a partially provisioned run resumes instead of starting over.
// Decryption never degrades; encryption may return an explicit fallback
// result when Config.AllowPlaintextFallback is set.
package pipeline
