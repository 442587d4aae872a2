// Package credential provisions, validates and manages the bearer tokens
// kubedash uses to reach remote control planes.
//
// Provisioning bootstraps a service account on the cluster by running kubectl
// over SSH on a bootstrap host:
//
//  1. connect: open an authenticated SSH session
//  2. identity: ensure the service account exists
//  3. authorization: ensure the cluster role binding exists
//  4. mint: create a token for the service account
//  5. validate: prove the token against the API server
//
// Existing objects are left untouched, so provisioning the same cluster twice
// succeeds and yields a fresh token. Every failure is a *ProvisioningError
// naming the stage it happened in.
package credential
