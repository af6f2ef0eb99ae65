// Package yslow builds PhantomJS invocations of the YSlow audit script, runs them,
// and decodes the metrics the script prints.
package yslow
