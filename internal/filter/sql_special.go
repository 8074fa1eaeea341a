package filter

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

func buildDirectoryIdCondition(f QueryFilter, tableAlias string, argPosition int) (condition string, args []interface{}, newArgPosition int, ctes []string) {
	idsField := "directory_ids"
	if tableAlias != "" {
		idsField = tableAlias + ".directory_ids"
	}

	switch f.Operator {
	case OpEqual:
		condition = fmt.Sprintf("$%d = ANY(%s)", argPosition, idsField)
		args = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpNotEqual:
		condition = fmt.Sprintf("NOT ($%d = ANY(%s))", argPosition, idsField)
		args = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpIn:
		if len(f.Values) > 0 {
			if isStringArray(f.Values) {
				condition = fmt.Sprintf("%s && $%d", idsField, argPosition)
				args = []interface{}{pq.Array(convertToStringArray(f.Values))}
				newArgPosition = argPosition + 1
			} else {
				memberChecks := make([]string, len(f.Values))
				args = make([]interface{}, len(f.Values))
				for i, val := range f.Values {
					memberChecks[i] = fmt.Sprintf("$%d = ANY(%s)", argPosition+i, idsField)
					args[i] = extractValueForSQL(val)
				}
				condition = fmt.Sprintf("(%s)", strings.Join(memberChecks, " OR "))
				newArgPosition = argPosition + len(f.Values)
			}
		}

	case OpIsNull:
		condition = fmt.Sprintf("(%s IS NULL OR cardinality(%s) = 0)", idsField, idsField)
		args = []interface{}{}
		newArgPosition = argPosition

	case OpIsNotNull:
		condition = fmt.Sprintf("cardinality(%s) > 0", idsField)
		args = []interface{}{}
		newArgPosition = argPosition

	default:
		return "", nil, argPosition, nil
	}

	return condition, args, newArgPosition, nil
}

func buildTargetStateCondition(f QueryFilter, tableAlias string, argPosition int) (condition string, args []interface{}, newArgPosition int, ctes []string) {
	var subqueryCondition string
	var subqueryArgs []interface{}

	switch f.Operator {
	case OpEqual:
		subqueryCondition = fmt.Sprintf("st.state = $%d", argPosition)
		subqueryArgs = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpNotEqual:
		subqueryCondition = fmt.Sprintf("st.state != $%d", argPosition)
		subqueryArgs = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpGreaterThan:
		subqueryCondition = fmt.Sprintf("st.state > $%d", argPosition)
		subqueryArgs = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpGreaterThanOrEqual:
		subqueryCondition = fmt.Sprintf("st.state >= $%d", argPosition)
		subqueryArgs = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpLessThan:
		subqueryCondition = fmt.Sprintf("st.state < $%d", argPosition)
		subqueryArgs = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpLessThanOrEqual:
		subqueryCondition = fmt.Sprintf("st.state <= $%d", argPosition)
		subqueryArgs = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpLike:
		subqueryCondition = fmt.Sprintf("st.state LIKE $%d", argPosition)
		subqueryArgs = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpILike:
		subqueryCondition = fmt.Sprintf("st.state ILIKE $%d", argPosition)
		subqueryArgs = []interface{}{extractValueForSQL(f.Value)}
		newArgPosition = argPosition + 1

	case OpIn:
		if len(f.Values) > 0 {
			if isStringArray(f.Values) {
				subqueryCondition = fmt.Sprintf("st.state = ANY($%d)", argPosition)
				subqueryArgs = []interface{}{pq.Array(convertToStringArray(f.Values))}
				newArgPosition = argPosition + 1
			} else {
				placeholders := make([]string, len(f.Values))
				subqueryArgs = make([]interface{}, len(f.Values))
				for i, val := range f.Values {
					placeholders[i] = fmt.Sprintf("$%d", argPosition+i)
					subqueryArgs[i] = extractValueForSQL(val)
				}
				subqueryCondition = fmt.Sprintf("st.state IN (%s)", strings.Join(placeholders, ", "))
				newArgPosition = argPosition + len(f.Values)
			}
		} else {
			return "", nil, argPosition, nil
		}

	case OpBetween:
		if len(f.Values) == 2 {
			subqueryCondition = fmt.Sprintf("st.state BETWEEN $%d AND $%d", argPosition, argPosition+1)
			subqueryArgs = []interface{}{extractValueForSQL(f.Values[0]), extractValueForSQL(f.Values[1])}
			newArgPosition = argPosition + 2
		} else {
			return "", nil, argPosition, nil
		}

	case OpIsNull:
		subqueryCondition = "st.state IS NULL"
		subqueryArgs = []interface{}{}
		newArgPosition = argPosition

	case OpIsNotNull:
		subqueryCondition = "st.state IS NOT NULL"
		subqueryArgs = []interface{}{}
		newArgPosition = argPosition

	default:
		return "", nil, argPosition, nil
	}

	cte := fmt.Sprintf("_target_state_matches AS (SELECT st.submission_id FROM fedsub.submission_targets st WHERE %s)", subqueryCondition)
	ctes = []string{cte}

	subField := "submission_id"
	if tableAlias != "" {
		subField = tableAlias + ".submission_id"
	}
	condition = fmt.Sprintf("%s IN (SELECT submission_id FROM _target_state_matches)", subField)
	args = subqueryArgs

	return condition, args, newArgPosition, ctes
}
