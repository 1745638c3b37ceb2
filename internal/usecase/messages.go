package usecase

import (
	"fmt"
	"html"
	"strings"
	"time"

	"QuestionsScanner/internal/domain"
)

const noticeTimeLayout = "02.01.2006 15:04:05"

// FormatStartNotice announces the loop start to the operator chat.
func FormatStartNotice(sources int, interval time.Duration, at time.Time) string {
	return fmt.Sprintf("🚀 <b>Мониторинг запущен</b>\n\n"+
		"Отслеживаемых чатов: %d\n"+
		"Интервал проверки: %d минут\n"+
		"Время запуска: %s",
		sources, int(interval.Minutes()), at.Format(noticeTimeLayout))
}

// FormatIterationSummary reports per-source counts after a tick.
func FormatIterationSummary(res domain.IterationResult, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Итерация #%d</b>\n\n", res.Iteration)
	fmt.Fprintf(&b, "Найдено вопросов: %d\n", res.Total())

	for _, locator := range res.Sources() {
		name := html.EscapeString(locator)
		if kind, failed := res.Failed[locator]; failed {
			fmt.Fprintf(&b, "• %s: ошибка (%s)\n", name, kind)
			continue
		}
		fmt.Fprintf(&b, "• %s: %d\n", name, res.Delivered[locator])
	}

	fmt.Fprintf(&b, "\nВремя: %s", at.Format(noticeTimeLayout))
	return b.String()
}
