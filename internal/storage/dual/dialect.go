package dual

import "strconv"

// Driver идентифицирует диалект физического хранилища.
type Driver string

// Поддерживаемые диалекты.
const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Placeholder единый позиционный плейсхолдер, которым пишутся все
// запросы приложения. MySQL принимает его нативно, для PostgreSQL
// он переписывается в порядковую форму $1..$n.
const Placeholder = '?'

// Rewrite переводит запрос с плейсхолдерами '?' в нативный синтаксис
// диалекта d. Для PostgreSQL каждое вхождение '?' заменяется на строго
// возрастающее $1, $2, ... в порядке следования слева направо.
// Замена чисто лексическая: знак вопроса внутри строкового литерала
// тоже будет заменён, поэтому литералы со знаками вопроса должны
// передаваться параметрами, а не текстом запроса.
func Rewrite(d Driver, query string) string {
	if d != DriverPostgres {
		return query
	}
	var (
		out = make([]byte, 0, len(query)+8)
		n   = 0
	)
	for i := 0; i < len(query); i++ {
		if query[i] != Placeholder {
			out = append(out, query[i])
			continue
		}
		n++
		out = append(out, '$')
		out = strconv.AppendInt(out, int64(n), 10)
	}
	return string(out)
}
