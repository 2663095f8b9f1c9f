package api

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

//stringify print the contents of the obj
func stringify(data interface{}) string {
	if data == nil {
		return "null"
	}
	var p []byte
	type d struct {
		Arguments interface{}
	}
	p, err := json.MarshalIndent(d{Arguments: data}, "", "\t")
	if err != nil {
		return err.Error()
	}
	return string(p)
}

//ErrorStack bas class for providers error management
type ErrorStack struct {
	Cause   error
	Message string
}

//Error format error message
func (e *ErrorStack) Error() string {
	if e.Cause != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s\nCaused by: %s", e.Message, e.Cause.Error())
		}
		return e.Cause.Error()
	}
	return e.Message
}

//Unwrap gives access to the cause of the error
func (e *ErrorStack) Unwrap() error {
	return e.Cause
}

//NewErrorStack create a new provider error
func NewErrorStack(cause error, message string, args ...interface{}) *ErrorStack {
	msg := message
	if args != nil {
		msg = fmt.Sprintf("%s :\n%s", message, stringify(args))
	}
	return &ErrorStack{
		Cause:   cause,
		Message: msg,
	}
}

//NewErrorStackFromError create a new provider error
func NewErrorStackFromError(cause error, err error) *ErrorStack {
	if err == nil && cause == nil {
		return nil
	}
	var msg string
	if err != nil {
		msg = err.Error()
	}
	return &ErrorStack{
		Cause:   cause,
		Message: msg,
	}
}

//ErrCapabilityUnavailable returned when a provider region does not offer an optional capability
//(e.g. no floating ip extension)
var ErrCapabilityUnavailable = errors.New("capability unavailable in region")

//ResourceExhaustedError a provider refused to hand out a resource because none is left
type ResourceExhaustedError struct {
	ErrorStack
	Resource string
}

//NewResourceExhaustedError creates a new ResourceExhaustedError
func NewResourceExhaustedError(cause error, resource string) *ResourceExhaustedError {
	return &ResourceExhaustedError{
		ErrorStack: *NewErrorStack(cause, fmt.Sprintf("no %s available", resource)),
		Resource:   resource,
	}
}

//IsResourceExhausted tells if err, or one of its causes, is a ResourceExhaustedError
func IsResourceExhausted(err error) bool {
	var target *ResourceExhaustedError
	return errors.As(err, &target)
}

//NotFoundError a resource does not exist (anymore) on the provider side
type NotFoundError struct {
	ErrorStack
	Kind string
	ID   string
}

//NewNotFoundError creates a new NotFoundError
func NewNotFoundError(cause error, kind string, id string) *NotFoundError {
	return &NotFoundError{
		ErrorStack: *NewErrorStack(cause, fmt.Sprintf("%s %s not found", kind, id)),
		Kind:       kind,
		ID:         id,
	}
}

//IsNotFound tells if err, or one of its causes, is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

//InsufficientResourcesError no floating ip could be obtained for a node by any strategy
type InsufficientResourcesError struct {
	ErrorStack
	NodeID RegionAndID
}

//NewInsufficientResourcesError creates a new InsufficientResourcesError
func NewInsufficientResourcesError(cause error, nodeID RegionAndID) *InsufficientResourcesError {
	return &InsufficientResourcesError{
		ErrorStack: *NewErrorStack(cause, fmt.Sprintf("no floating ip available for node %s", nodeID)),
		NodeID:     nodeID,
	}
}

//IsInsufficientResources tells if err, or one of its causes, is an InsufficientResourcesError
func IsInsufficientResources(err error) bool {
	var target *InsufficientResourcesError
	return errors.As(err, &target)
}
