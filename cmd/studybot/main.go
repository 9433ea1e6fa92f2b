package main

import "studybot/cmd/studybot/cli"

// @title Studybot API
// @version 1.0
// @description Chatbot para estudantes de programação: base de conhecimento local com fallback para modelo de linguagem

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /

func main() {
	cli.Execute()
}
