// Package fuzztests houses Go fuzz harnesses that push arbitrary bytes
// through the front-end and the compiler (source -> lexer -> parser -> sema
// -> compiler). They guard against panics and hangs on malformed input.
//
// Не делает: запуск VM, генерацию корпусов, запись файлов.
package fuzztests
