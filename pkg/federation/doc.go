// Package federation implements the article collection exchange between
// federated instances. An instance exports the articles it originated as a
// wire Collection and imports collections received from peers, verifying the
// sender's domain before converting and merging anything into its store.
package federation
