// Package rules - упорядоченные списки правил "первое совпадение выигрывает".
// Порядок в списке и есть приоритет, поэтому правила не сортируются.
package rules

// Rule сопоставляет вход с результатом, если выполняется условие When.
type Rule[In, Out any] struct {
	Name string
	When func(In) bool
	Then func(In) Out
}

// Match - результат вычисления списка: значение и имя сработавшего правила.
// Rule пустой, если сработал fallback.
type Match[Out any] struct {
	Value Out
	Rule  string
}

// First проходит правила сверху вниз и возвращает результат первого совпавшего.
// Если не совпало ни одно, возвращается fallback.
func First[In, Out any](list []Rule[In, Out], in In, fallback Out) Match[Out] {
	for _, r := range list {
		if r.When == nil || !r.When(in) {
			continue
		}
		return Match[Out]{Value: r.Then(in), Rule: r.Name}
	}
	return Match[Out]{Value: fallback}
}

// Const - хелпер для Then, возвращающего фиксированное значение.
func Const[In, Out any](v Out) func(In) Out {
	return func(In) Out { return v }
}
