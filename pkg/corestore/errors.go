package corestore

import "fmt"

// Issue is one field-level validation failure (spec §4.1).
type Issue struct {
	Field   string
	Code    string // required|type|enum|min|max|minLength|maxLength|pattern|format
	Message string
}

// ValidationError carries every issue found while validating a record
// against its bucket's schema. The validator never aborts on the first
// failure (spec §4.1).
type ValidationError struct {
	Bucket string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("corestore: validation failed for bucket %q (%d issue(s))", e.Bucket, len(e.Issues))
}

// UniqueConstraintError reports a collision on a unique-indexed field.
type UniqueConstraintError struct {
	Bucket string
	Field  string
	Value  any
}

func (e *UniqueConstraintError) Error() string {
	return fmt.Sprintf("corestore: unique constraint violated on bucket %q field %q value %v", e.Bucket, e.Field, e.Value)
}

// DuplicateKeyError is raised by a plain, non-transactional insert whose
// primary key already exists. It is distinct from TransactionConflictError:
// that one reports an optimistic version mismatch discovered during
// two-phase commit, this one reports a key collision found immediately,
// outside of any transaction (spec §7).
type DuplicateKeyError struct {
	Bucket string
	Key    any
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("corestore: key %v already exists in bucket %q", e.Key, e.Bucket)
}

// BucketAlreadyExistsError is raised by defineBucket on a name collision.
type BucketAlreadyExistsError struct {
	Name string
}

func (e *BucketAlreadyExistsError) Error() string {
	return fmt.Sprintf("corestore: bucket %q already exists", e.Name)
}

// BucketNotDefinedError is raised when addressing an unknown bucket.
type BucketNotDefinedError struct {
	Name string
}

func (e *BucketNotDefinedError) Error() string {
	return fmt.Sprintf("corestore: bucket %q is not defined", e.Name)
}

// QueryAlreadyDefinedError is raised by defineQuery on a name collision.
type QueryAlreadyDefinedError struct {
	Name string
}

func (e *QueryAlreadyDefinedError) Error() string {
	return fmt.Sprintf("corestore: query %q is already defined", e.Name)
}

// QueryNotDefinedError is raised by subscribe/runQuery for an unknown name.
type QueryNotDefinedError struct {
	Name string
}

func (e *QueryNotDefinedError) Error() string {
	return fmt.Sprintf("corestore: query %q is not defined", e.Name)
}

// TransactionConflictError is raised at commit when a record's version has
// advanced since it was read inside the transaction (spec §4.6, §8 P6/P7).
type TransactionConflictError struct {
	Bucket          string
	Key             any
	ExpectedVersion int64
	ActualVersion   int64
}

func (e *TransactionConflictError) Error() string {
	return fmt.Sprintf("corestore: transaction conflict on bucket %q key %v: expected version %d, actual %d",
		e.Bucket, e.Key, e.ExpectedVersion, e.ActualVersion)
}

// NotFoundError is raised by update on a key that does not exist.
type NotFoundError struct {
	Bucket string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("corestore: key %v not found in bucket %q", e.Key, e.Bucket)
}

// InvalidDefinitionError is raised when a bucket definition references a
// field that is not in its own schema.
type InvalidDefinitionError struct {
	Bucket string
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("corestore: invalid definition for bucket %q: %s", e.Bucket, e.Reason)
}
