package expr

import "reflect"

type CompileError struct {
	Message string
	Src     string
}

func (c CompileError) Error() string {
	return c.Message
}

type NotObjectError struct {
	Message string
	Item    interface{}
}

func (n NotObjectError) Error() string {
	return n.Message
}

type NotAssignableError struct {
	Message string
	Item    interface{}
}

func (n NotAssignableError) Error() string {
	return n.Message
}

type NotCallableError struct {
	Message string
	Item    interface{}
}

func (n NotCallableError) Error() string {
	return n.Message
}

type NotFunctionError struct {
	Message string
	Item    interface{}
}

func (n NotFunctionError) Error() string {
	return n.Message
}

type WrongNumberOfArgsError struct {
	Message string
	Item    interface{}
	Got     int
	Want    int
}

func (w WrongNumberOfArgsError) Error() string {
	return w.Message
}

type WrongReturnValueError struct {
	Message string
	Item    interface{}
	Got     reflect.Type
	Want    reflect.Type
}

func (w WrongReturnValueError) Error() string {
	return w.Message
}

type NoReturnValueError struct {
	Message string
	Item    interface{}
}

func (n NoReturnValueError) Error() string {
	return n.Message
}

type IndexOutOfBoundsError struct {
	Message string
	Item    interface{}
	Index   interface{}
}

func (i IndexOutOfBoundsError) Error() string {
	return i.Message
}

type NonIntegerIndexError struct {
	Message string
	Item    interface{}
	Index   interface{}
}

func (n NonIntegerIndexError) Error() string {
	return n.Message
}

type DivisionByZeroError struct {
	Message string
	X       interface{}
	Y       interface{}
}

func (d DivisionByZeroError) Error() string {
	return d.Message
}

type BinaryOpNotImplementedError struct {
	Message string
	X       interface{}
	Y       interface{}
}

func (b BinaryOpNotImplementedError) Error() string {
	return b.Message
}

type NotImplementedError struct {
	Message string
	Item    interface{}
}

func (n NotImplementedError) Error() string {
	return n.Message
}
