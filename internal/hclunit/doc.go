// Package hclunit executes HCL unit files into a namespace.Store.
//
// Every top-level block with exactly one label defines <type>.<label> as an
// object of its evaluated attributes:
//
//	model "user" {
//	  table   = "users"
//	  account = model.account.table
//	}
//
// An attribute that references a definition nobody has loaded yet makes the
// unit fail with a retryable name-unresolved error, which is how an unordered
// set of files converges under the fixpoint loader. An optional top-level
// `import = ["lib/base.hcl"]` loads other units first, the way a require
// would; an import that does not exist is a retryable not-found error.
//
// A unit's definitions are committed together or not at all, and a unit that
// already loaded is not evaluated again until it is unloaded.
package hclunit
