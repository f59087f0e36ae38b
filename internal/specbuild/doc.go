// Package specbuild turns raw extracted concepts into the final strategy
// specification: duplicates merged, conflicts retained as visible variants,
// and everything partitioned by the acceptance threshold.
package specbuild
