package dao

// Parameter is a loose filter passed to List implementations.  Supported
// names are store specific; task stores understand "State" and "SourceRef".
type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
