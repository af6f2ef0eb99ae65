// Package phantom locates the PhantomJS binary used to run YSlow audits.
//
// Discovery walks an ordered chain of BinaryResolver strategies: an explicitly
// configured path, a package installed under the working directory, the same
// package under the ancestor project of the audit script, and finally the bare
// executable name resolved through PATH at spawn time.
package phantom
