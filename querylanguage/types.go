package querylanguage

import (
	"database/sql/driver"
	"time"
)

// Fielder is a predicate template not yet bound to a field name. The
// per-Go-type EQ/NEQ/.../Or/And/Not constructors below all return one
// of these, and Field binds it to produce a P.
type Fielder interface {
	Field(name string) P
}

func cmp[T ~func(string) P](op string, v any) T {
	return func(name string) P { return binaryExpr{op, F(name), literal(v)} }
}

func isNil[T ~func(string) P]() T {
	return func(name string) P { return binaryExpr{"==", F(name), litExpr("nil")} }
}

func notNil[T ~func(string) P]() T {
	return func(name string) P { return binaryExpr{"!=", F(name), litExpr("nil")} }
}

func orFielder[T ~func(string) P](ps ...T) T {
	return func(name string) P {
		subs := make([]P, len(ps))
		for i, p := range ps {
			subs[i] = p(name)
		}
		return Or(subs...)
	}
}

func andFielder[T ~func(string) P](ps ...T) T {
	return func(name string) P {
		subs := make([]P, len(ps))
		for i, p := range ps {
			subs[i] = p(name)
		}
		return And(subs...)
	}
}

func notFielder[T ~func(string) P](p T) T {
	return func(name string) P { return Not(p(name)) }
}

// StringP is a predicate template over a string field.
type StringP func(name string) P

func (f StringP) Field(name string) P { return f(name) }

func StringEQ(v string) StringP       { return cmp[StringP]("==", v) }
func StringNEQ(v string) StringP      { return cmp[StringP]("!=", v) }
func StringGT(v string) StringP       { return cmp[StringP](">", v) }
func StringGTE(v string) StringP      { return cmp[StringP](">=", v) }
func StringLT(v string) StringP       { return cmp[StringP]("<", v) }
func StringLTE(v string) StringP      { return cmp[StringP]("<=", v) }
func StringNil() StringP              { return isNil[StringP]() }
func StringNotNil() StringP           { return notNil[StringP]() }
func StringOr(ps ...StringP) StringP  { return orFielder(ps...) }
func StringAnd(ps ...StringP) StringP { return andFielder(ps...) }
func StringNot(p StringP) StringP     { return notFielder(p) }

// BoolP is a predicate template over a bool field.
type BoolP func(name string) P

func (f BoolP) Field(name string) P { return f(name) }

func BoolEQ(v bool) BoolP        { return cmp[BoolP]("==", v) }
func BoolNEQ(v bool) BoolP       { return cmp[BoolP]("!=", v) }
func BoolNil() BoolP             { return isNil[BoolP]() }
func BoolNotNil() BoolP          { return notNil[BoolP]() }
func BoolOr(ps ...BoolP) BoolP   { return orFielder(ps...) }
func BoolAnd(ps ...BoolP) BoolP  { return andFielder(ps...) }
func BoolNot(p BoolP) BoolP      { return notFielder(p) }

// BytesP is a predicate template over a []byte field, rendered as a
// base64-encoded, quoted literal.
type BytesP func(name string) P

func (f BytesP) Field(name string) P { return f(name) }

func BytesEQ(v []byte) BytesP      { return cmp[BytesP]("==", v) }
func BytesNEQ(v []byte) BytesP     { return cmp[BytesP]("!=", v) }
func BytesNil() BytesP             { return isNil[BytesP]() }
func BytesNotNil() BytesP          { return notNil[BytesP]() }
func BytesOr(ps ...BytesP) BytesP  { return orFielder(ps...) }
func BytesAnd(ps ...BytesP) BytesP { return andFielder(ps...) }
func BytesNot(p BytesP) BytesP     { return notFielder(p) }

// TimeP is a predicate template over a time.Time field, rendered as
// an RFC3339, quoted literal.
type TimeP func(name string) P

func (f TimeP) Field(name string) P { return f(name) }

func TimeEQ(v time.Time) TimeP  { return cmp[TimeP]("==", v) }
func TimeNEQ(v time.Time) TimeP { return cmp[TimeP]("!=", v) }
func TimeGT(v time.Time) TimeP  { return cmp[TimeP](">", v) }
func TimeGTE(v time.Time) TimeP { return cmp[TimeP](">=", v) }
func TimeLT(v time.Time) TimeP  { return cmp[TimeP]("<", v) }
func TimeLTE(v time.Time) TimeP { return cmp[TimeP]("<=", v) }
func TimeNil() TimeP            { return isNil[TimeP]() }
func TimeNotNil() TimeP         { return notNil[TimeP]() }
func TimeOr(ps ...TimeP) TimeP  { return orFielder(ps...) }
func TimeAnd(ps ...TimeP) TimeP { return andFielder(ps...) }
func TimeNot(p TimeP) TimeP     { return notFielder(p) }

// UintP is a predicate template over a uint field.
type UintP func(name string) P

func (f UintP) Field(name string) P { return f(name) }

func UintEQ(v uint) UintP      { return cmp[UintP]("==", v) }
func UintNEQ(v uint) UintP     { return cmp[UintP]("!=", v) }
func UintGT(v uint) UintP      { return cmp[UintP](">", v) }
func UintGTE(v uint) UintP     { return cmp[UintP](">=", v) }
func UintLT(v uint) UintP      { return cmp[UintP]("<", v) }
func UintLTE(v uint) UintP     { return cmp[UintP]("<=", v) }
func UintNil() UintP           { return isNil[UintP]() }
func UintNotNil() UintP        { return notNil[UintP]() }
func UintOr(ps ...UintP) UintP { return orFielder(ps...) }
func UintAnd(ps ...UintP) UintP{ return andFielder(ps...) }
func UintNot(p UintP) UintP    { return notFielder(p) }

// Uint8P is a predicate template over a uint8 field.
type Uint8P func(name string) P

func (f Uint8P) Field(name string) P { return f(name) }

func Uint8EQ(v uint8) Uint8P      { return cmp[Uint8P]("==", v) }
func Uint8NEQ(v uint8) Uint8P     { return cmp[Uint8P]("!=", v) }
func Uint8GT(v uint8) Uint8P      { return cmp[Uint8P](">", v) }
func Uint8GTE(v uint8) Uint8P     { return cmp[Uint8P](">=", v) }
func Uint8LT(v uint8) Uint8P      { return cmp[Uint8P]("<", v) }
func Uint8LTE(v uint8) Uint8P     { return cmp[Uint8P]("<=", v) }
func Uint8Nil() Uint8P            { return isNil[Uint8P]() }
func Uint8NotNil() Uint8P         { return notNil[Uint8P]() }
func Uint8Or(ps ...Uint8P) Uint8P { return orFielder(ps...) }
func Uint8And(ps ...Uint8P) Uint8P{ return andFielder(ps...) }
func Uint8Not(p Uint8P) Uint8P    { return notFielder(p) }

// Uint16P is a predicate template over a uint16 field.
type Uint16P func(name string) P

func (f Uint16P) Field(name string) P { return f(name) }

func Uint16EQ(v uint16) Uint16P       { return cmp[Uint16P]("==", v) }
func Uint16NEQ(v uint16) Uint16P      { return cmp[Uint16P]("!=", v) }
func Uint16GT(v uint16) Uint16P       { return cmp[Uint16P](">", v) }
func Uint16GTE(v uint16) Uint16P      { return cmp[Uint16P](">=", v) }
func Uint16LT(v uint16) Uint16P       { return cmp[Uint16P]("<", v) }
func Uint16LTE(v uint16) Uint16P      { return cmp[Uint16P]("<=", v) }
func Uint16Nil() Uint16P              { return isNil[Uint16P]() }
func Uint16NotNil() Uint16P           { return notNil[Uint16P]() }
func Uint16Or(ps ...Uint16P) Uint16P  { return orFielder(ps...) }
func Uint16And(ps ...Uint16P) Uint16P { return andFielder(ps...) }
func Uint16Not(p Uint16P) Uint16P     { return notFielder(p) }

// Uint32P is a predicate template over a uint32 field.
type Uint32P func(name string) P

func (f Uint32P) Field(name string) P { return f(name) }

func Uint32EQ(v uint32) Uint32P       { return cmp[Uint32P]("==", v) }
func Uint32NEQ(v uint32) Uint32P      { return cmp[Uint32P]("!=", v) }
func Uint32GT(v uint32) Uint32P       { return cmp[Uint32P](">", v) }
func Uint32GTE(v uint32) Uint32P      { return cmp[Uint32P](">=", v) }
func Uint32LT(v uint32) Uint32P       { return cmp[Uint32P]("<", v) }
func Uint32LTE(v uint32) Uint32P      { return cmp[Uint32P]("<=", v) }
func Uint32Nil() Uint32P              { return isNil[Uint32P]() }
func Uint32NotNil() Uint32P           { return notNil[Uint32P]() }
func Uint32Or(ps ...Uint32P) Uint32P  { return orFielder(ps...) }
func Uint32And(ps ...Uint32P) Uint32P { return andFielder(ps...) }
func Uint32Not(p Uint32P) Uint32P     { return notFielder(p) }

// Uint64P is a predicate template over a uint64 field.
type Uint64P func(name string) P

func (f Uint64P) Field(name string) P { return f(name) }

func Uint64EQ(v uint64) Uint64P       { return cmp[Uint64P]("==", v) }
func Uint64NEQ(v uint64) Uint64P      { return cmp[Uint64P]("!=", v) }
func Uint64GT(v uint64) Uint64P       { return cmp[Uint64P](">", v) }
func Uint64GTE(v uint64) Uint64P      { return cmp[Uint64P](">=", v) }
func Uint64LT(v uint64) Uint64P       { return cmp[Uint64P]("<", v) }
func Uint64LTE(v uint64) Uint64P      { return cmp[Uint64P]("<=", v) }
func Uint64Nil() Uint64P              { return isNil[Uint64P]() }
func Uint64NotNil() Uint64P           { return notNil[Uint64P]() }
func Uint64Or(ps ...Uint64P) Uint64P  { return orFielder(ps...) }
func Uint64And(ps ...Uint64P) Uint64P { return andFielder(ps...) }
func Uint64Not(p Uint64P) Uint64P     { return notFielder(p) }

// IntP is a predicate template over an int field.
type IntP func(name string) P

func (f IntP) Field(name string) P { return f(name) }

func IntEQ(v int) IntP        { return cmp[IntP]("==", v) }
func IntNEQ(v int) IntP       { return cmp[IntP]("!=", v) }
func IntGT(v int) IntP        { return cmp[IntP](">", v) }
func IntGTE(v int) IntP       { return cmp[IntP](">=", v) }
func IntLT(v int) IntP        { return cmp[IntP]("<", v) }
func IntLTE(v int) IntP       { return cmp[IntP]("<=", v) }
func IntNil() IntP            { return isNil[IntP]() }
func IntNotNil() IntP         { return notNil[IntP]() }
func IntOr(ps ...IntP) IntP   { return orFielder(ps...) }
func IntAnd(ps ...IntP) IntP  { return andFielder(ps...) }
func IntNot(p IntP) IntP      { return notFielder(p) }

// Int8P is a predicate template over an int8 field.
type Int8P func(name string) P

func (f Int8P) Field(name string) P { return f(name) }

func Int8EQ(v int8) Int8P      { return cmp[Int8P]("==", v) }
func Int8NEQ(v int8) Int8P     { return cmp[Int8P]("!=", v) }
func Int8GT(v int8) Int8P      { return cmp[Int8P](">", v) }
func Int8GTE(v int8) Int8P     { return cmp[Int8P](">=", v) }
func Int8LT(v int8) Int8P      { return cmp[Int8P]("<", v) }
func Int8LTE(v int8) Int8P     { return cmp[Int8P]("<=", v) }
func Int8Nil() Int8P           { return isNil[Int8P]() }
func Int8NotNil() Int8P        { return notNil[Int8P]() }
func Int8Or(ps ...Int8P) Int8P { return orFielder(ps...) }
func Int8And(ps ...Int8P) Int8P{ return andFielder(ps...) }
func Int8Not(p Int8P) Int8P    { return notFielder(p) }

// Int16P is a predicate template over an int16 field.
type Int16P func(name string) P

func (f Int16P) Field(name string) P { return f(name) }

func Int16EQ(v int16) Int16P      { return cmp[Int16P]("==", v) }
func Int16NEQ(v int16) Int16P     { return cmp[Int16P]("!=", v) }
func Int16GT(v int16) Int16P      { return cmp[Int16P](">", v) }
func Int16GTE(v int16) Int16P     { return cmp[Int16P](">=", v) }
func Int16LT(v int16) Int16P      { return cmp[Int16P]("<", v) }
func Int16LTE(v int16) Int16P     { return cmp[Int16P]("<=", v) }
func Int16Nil() Int16P            { return isNil[Int16P]() }
func Int16NotNil() Int16P         { return notNil[Int16P]() }
func Int16Or(ps ...Int16P) Int16P { return orFielder(ps...) }
func Int16And(ps ...Int16P) Int16P{ return andFielder(ps...) }
func Int16Not(p Int16P) Int16P    { return notFielder(p) }

// Int32P is a predicate template over an int32 field.
type Int32P func(name string) P

func (f Int32P) Field(name string) P { return f(name) }

func Int32EQ(v int32) Int32P      { return cmp[Int32P]("==", v) }
func Int32NEQ(v int32) Int32P     { return cmp[Int32P]("!=", v) }
func Int32GT(v int32) Int32P      { return cmp[Int32P](">", v) }
func Int32GTE(v int32) Int32P     { return cmp[Int32P](">=", v) }
func Int32LT(v int32) Int32P      { return cmp[Int32P]("<", v) }
func Int32LTE(v int32) Int32P     { return cmp[Int32P]("<=", v) }
func Int32Nil() Int32P            { return isNil[Int32P]() }
func Int32NotNil() Int32P         { return notNil[Int32P]() }
func Int32Or(ps ...Int32P) Int32P { return orFielder(ps...) }
func Int32And(ps ...Int32P) Int32P{ return andFielder(ps...) }
func Int32Not(p Int32P) Int32P    { return notFielder(p) }

// Int64P is a predicate template over an int64 field.
type Int64P func(name string) P

func (f Int64P) Field(name string) P { return f(name) }

func Int64EQ(v int64) Int64P      { return cmp[Int64P]("==", v) }
func Int64NEQ(v int64) Int64P     { return cmp[Int64P]("!=", v) }
func Int64GT(v int64) Int64P      { return cmp[Int64P](">", v) }
func Int64GTE(v int64) Int64P     { return cmp[Int64P](">=", v) }
func Int64LT(v int64) Int64P      { return cmp[Int64P]("<", v) }
func Int64LTE(v int64) Int64P     { return cmp[Int64P]("<=", v) }
func Int64Nil() Int64P            { return isNil[Int64P]() }
func Int64NotNil() Int64P         { return notNil[Int64P]() }
func Int64Or(ps ...Int64P) Int64P { return orFielder(ps...) }
func Int64And(ps ...Int64P) Int64P{ return andFielder(ps...) }
func Int64Not(p Int64P) Int64P    { return notFielder(p) }

// Float32P is a predicate template over a float32 field.
type Float32P func(name string) P

func (f Float32P) Field(name string) P { return f(name) }

func Float32EQ(v float32) Float32P        { return cmp[Float32P]("==", v) }
func Float32NEQ(v float32) Float32P       { return cmp[Float32P]("!=", v) }
func Float32GT(v float32) Float32P        { return cmp[Float32P](">", v) }
func Float32GTE(v float32) Float32P       { return cmp[Float32P](">=", v) }
func Float32LT(v float32) Float32P        { return cmp[Float32P]("<", v) }
func Float32LTE(v float32) Float32P       { return cmp[Float32P]("<=", v) }
func Float32Nil() Float32P                { return isNil[Float32P]() }
func Float32NotNil() Float32P             { return notNil[Float32P]() }
func Float32Or(ps ...Float32P) Float32P   { return orFielder(ps...) }
func Float32And(ps ...Float32P) Float32P  { return andFielder(ps...) }
func Float32Not(p Float32P) Float32P      { return notFielder(p) }

// Float64P is a predicate template over a float64 field.
type Float64P func(name string) P

func (f Float64P) Field(name string) P { return f(name) }

func Float64EQ(v float64) Float64P       { return cmp[Float64P]("==", v) }
func Float64NEQ(v float64) Float64P      { return cmp[Float64P]("!=", v) }
func Float64GT(v float64) Float64P       { return cmp[Float64P](">", v) }
func Float64GTE(v float64) Float64P      { return cmp[Float64P](">=", v) }
func Float64LT(v float64) Float64P       { return cmp[Float64P]("<", v) }
func Float64LTE(v float64) Float64P      { return cmp[Float64P]("<=", v) }
func Float64Nil() Float64P               { return isNil[Float64P]() }
func Float64NotNil() Float64P            { return notNil[Float64P]() }
func Float64Or(ps ...Float64P) Float64P  { return orFielder(ps...) }
func Float64And(ps ...Float64P) Float64P { return andFielder(ps...) }
func Float64Not(p Float64P) Float64P     { return notFielder(p) }

// ValueP is a predicate template over a driver.Valuer-typed field; it
// never inspects the underlying value, since most driver.Valuer
// implementations (encrypted columns, custom scalars) don't have a
// meaningful textual form. It renders as the opaque placeholder "{}".
type ValueP func(name string) P

func (f ValueP) Field(name string) P { return f(name) }

func ValueEQ(v driver.Valuer) ValueP       { return cmp[ValueP]("==", v) }
func ValueNEQ(v driver.Valuer) ValueP      { return cmp[ValueP]("!=", v) }
func ValueNil() ValueP                     { return isNil[ValueP]() }
func ValueNotNil() ValueP                  { return notNil[ValueP]() }
func ValueOr(ps ...ValueP) ValueP  { return orFielder(ps...) }
func ValueAnd(ps ...ValueP) ValueP { return andFielder(ps...) }
func ValueNot(p ValueP) ValueP     { return notFielder(p) }

// OtherP is a predicate template over a field of any other Go type,
// rendered as the opaque placeholder "{}".
type OtherP func(name string) P

func (f OtherP) Field(name string) P { return f(name) }

func OtherEQ(v any) OtherP       { return cmp[OtherP]("==", v) }
func OtherNEQ(v any) OtherP      { return cmp[OtherP]("!=", v) }
func OtherNil() OtherP           { return isNil[OtherP]() }
func OtherNotNil() OtherP        { return notNil[OtherP]() }
func OtherOr(ps ...OtherP) OtherP  { return orFielder(ps...) }
func OtherAnd(ps ...OtherP) OtherP { return andFielder(ps...) }
func OtherNot(p OtherP) OtherP    { return notFielder(p) }
