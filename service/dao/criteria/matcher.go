package criteria

import (
	"github.com/viant/taskgate/service/dao"
)

// Match evaluates all filter parameters against the supplied field accessor.
// An empty parameter list matches everything; unknown parameter names are
// ignored so stores stay forward compatible.
func Match(parameters []*dao.Parameter, field func(name string) string) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		actual := field(parameter.Name)
		switch expected := parameter.Value.(type) {
		case string:
			if actual != expected {
				return false
			}
		case []string:
			matched := false
			for _, candidate := range expected {
				if actual == candidate {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}
