package validation

// Contact field names on the wire.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
)

// CreateContact validates POST /v1/contacts bodies: every field is required.
var CreateContact = Schema{
	Fields: []Field{
		{Name: FieldFirstName, Required: true, Rules: []Rule{String, NotEmpty}},
		{Name: FieldLastName, Required: true, Rules: []Rule{String, NotEmpty}},
		{Name: FieldEmail, Required: true, Rules: []Rule{String, NotEmpty, Email}},
	},
}

// UpdateContact validates PATCH /v1/contacts/{id} bodies. Both names are
// optional; email is not listed, so it is stripped and can never change.
var UpdateContact = Schema{
	Fields: []Field{
		{Name: FieldFirstName, Rules: []Rule{String, NotEmpty}},
		{Name: FieldLastName, Rules: []Rule{String, NotEmpty}},
	},
}
