package validate

import (
	"fmt"
	"sort"
)

// ============================================================
// Structural Validator
// ============================================================

// Range — мягкий ожидаемый диапазон числа объектов категории.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Rules — жесткие минимумы (блокирующие) и ожидаемые диапазоны (предупреждения).
type Rules struct {
	HardMinimums map[string]int   `json:"hard_minimums"`
	Expected     map[string]Range `json:"expected"`
}

func DefaultRules() Rules {
	return Rules{
		HardMinimums: map[string]int{
			"walls": 4,
			"roof":  1,
		},
		Expected: map[string]Range{
			"walls":   {Min: 4, Max: 60},
			"opening": {Min: 1, Max: 40},
		},
	}
}

// Result — вердикт с поименованными ошибками и предупреждениями по категориям.
type Result struct {
	Passed   bool     `json:"passed"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Check сверяет инвентарь (категория -> число объектов) с правилами.
// Недобор до жесткого минимума — блокирующая ошибка; выход за ожидаемый
// диапазон — только предупреждение.
func Check(inventory map[string]int, rules Rules) Result {
	result := Result{Passed: true}

	for _, category := range sortedKeys(rules.HardMinimums) {
		min := rules.HardMinimums[category]
		count := inventory[category]
		if count < min {
			result.Passed = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("category %s: %d objects, hard minimum %d", category, count, min))
		}
	}

	for _, category := range sortedKeys(rules.Expected) {
		r := rules.Expected[category]
		count := inventory[category]
		if count < r.Min || count > r.Max {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("category %s: %d objects, expected %d..%d", category, count, r.Min, r.Max))
		}
	}

	return result
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
