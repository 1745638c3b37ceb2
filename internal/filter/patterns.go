package filter

import "regexp"

// RE2 \w and \b are ASCII-only, so word characters are spelled out for Cyrillic.
const (
	word       = `[\p{L}\p{N}_]`
	wordStart  = `(?:^|[^\p{L}])`
	linkTLDs   = `(?:com|ru|org|net|io|ai|xyz|app)`
	spamEmojis = `[🤝🙌🏻👋🚀🤩😂😅😉😀😊👍👏🙏🔥📌]`
)

var (
	linkPatterns = compileAll(
		`https?://\S+`,
		`www\.\S+`,
		`t\.me/\S+`,
		`(?:bit\.ly|clck\.ru|tinyurl\.com|goo\.gl)/\S*`,
		`@`+word+`+\.`+word+`+`,
		word+`+\.`+linkTLDs+`\S*`,
	)

	uselessPatterns = compileAll(
		`какое.*отношение.*имеет.*к.*диалогу\??`,
		`к.*нашему.*разговору\??`,
		`что это значит`,
		`просто интересно`,
		`уточнить.*контекст`,
		`при чем тут`,
	)

	selfReferencePattern = regexp.MustCompile(`я спросил.*\?|ответ:`)

	rhetoricalPatterns = compileAll(
		`ваше мнение`,
		`что думаете`,
		`интересно.*мнение`,
		`зачем.*собрались`,
		`как так получилось`,
		`что это значит`,
		`в чем суть`,
		`в чем смысл`,
	)

	interrogativePattern = regexp.MustCompile(`как|что|где|когда|почему|зачем|кто|какой|который`)

	defaultBoringPhrases = []string{
		`понедельник`, `^всем\s*привет`, `добр(ый|ого)`, `доброе утро`, `удачи`,
		`#`, `завелся`, `вдохновени`, `дай(те)? совет`, `мотиваци`, `успеха`,
		`подпиш`, `как дела`, `работает кто`, `есть кто`, `всем приветик`,
		`кого нет`, `кого добавить`, `без темы`, `на подумать`, `почти вопрос`,
		`кстати`,
	}

	questionPatterns = compileAll(
		`(?:как|что|где|когда|почему|зачем|кто|какой|кому|сколько|нужно ли|стоит ли)[^.!?]*\?`,
		`подскажите`,
		`посоветуйте`,
		`может (?:кто|кто-нибудь|у кого)`,
		word+`+\?`,
	)

	exclusionPatterns = compileAll(
		wordStart+`(?:lol|ахах|прикол|шутка|ржу|бот|ушёл|отдыхать|устал)`,
		`[😂😆🤔😅😜😏😎😉]`,
		`^[^а-яёА-ЯЁ]*$`,
		`^(?:класс|понятно|ясно|спасибо).{0,12}$`,
	)

	selfNarrativePattern = regexp.MustCompile(wordStart + `я .*(?:думаю|узнал|считаю)`)

	spamPatterns = compileAll(
		`сотрудничество`,
		`предлагаю`,
		`услуги`,
		`гаранти`,
		`кейсы`,
		`бизнес.*авито`,
		`по договору`,
		`привлечен`+word+`*.*клиент`,
	)

	spamEmojiPattern = regexp.MustCompile(spamEmojis)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, p := range patterns {
		if p.MatchString(text) {
			return p.String(), true
		}
	}
	return "", false
}
