package classifier

import "fmt"

const (
	topicSystemPrompt = "Очень сжато и по делу: определи ТЕМУ чата. " +
		"Игнорируй приветствия, оффтоп, расскажи только по содержательной части."

	topicUserTemplate = "Типичный участник анализирует последние сообщения этого Telegram-чата " +
		"и формулирует ключевую тему/темы чата буквально 1-2 предложениями " +
		"без оценок и без приветствий.\n\n" +
		"Примеры тем:\n" +
		"- 'Обсуждение фриланса и автоматизации задач на Python'\n" +
		"- 'Технический чат о парсинге данных и Telegram-ботах'\n" +
		"- 'Чат по криптовалютам и инвестициям в крипту'\n" +
		"- 'Общий чат для неформального общения'\n\n" +
		"Вот сообщения:\n%s\n\n" +
		"Какая тематика или основные темы чата по содержанию этих сообщений?"

	onTopicSystemPrompt = "Ты эксперт по тематике чата. Очень строго: только 'да' или 'нет'."

	onTopicUserTemplate = "Тематика Telegram-чата: %s\n" +
		"Вопрос: %s\n\n" +
		"Ответь 'да', если вопрос явно по указанной тематике; " +
		"иначе ответь 'нет'. Только 'да' или 'нет'."

	confidenceSystemPrompt = "Честно оцени свои возможности ответить качественно. Только 'да' или 'нет'."

	confidenceUserTemplate = "Вопрос: %s\n\n" +
		"Можешь ли ты дать точный, конкретный и полезный ответ на этот вопрос, " +
		"основываясь на твоих знаниях?\n\n" +
		"Ответь 'да', если уверен в своих знаниях по этой теме " +
		"и можешь дать качественный ответ.\n" +
		"Ответь 'нет', если тема слишком специфична, требует актуальной информации, " +
		"которой у тебя может не быть, или если вопрос слишком расплывчатый.\n\n" +
		"Только 'да' или 'нет'."

	actionableSystemPrompt = "Ты отбираешь вопросы, на которые можно помочь по существу. Только 'да' или 'нет'."

	actionableUserTemplate = "Вопрос: %s\n\n" +
		"Это конкретная задача или проблема, которую можно решить советом, " +
		"объяснением или примером кода?\n\n" +
		"Ответь 'нет', если это болтовня, мнение, просьба сделать работу целиком " +
		"или найти готовый продукт за автора.\n\n" +
		"Только 'да' или 'нет'."
)

func topicPrompt(messages string) string {
	return fmt.Sprintf(topicUserTemplate, messages)
}

func onTopicPrompt(question, topic string) string {
	return fmt.Sprintf(onTopicUserTemplate, topic, question)
}

func confidencePrompt(question string) string {
	return fmt.Sprintf(confidenceUserTemplate, question)
}

func actionablePrompt(question string) string {
	return fmt.Sprintf(actionableUserTemplate, question)
}
