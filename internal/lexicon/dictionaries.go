package lexicon

import "regexp"

// FastPhrase maps a complete, frequently typed query to the catalog subject
// that answers it, plus subjects to try when the primary one is empty.
type FastPhrase struct {
	Phrase    string
	Primary   string
	Fallbacks []string
}

// Category is a literal topic phrase and the catalog subject terms it expands to.
type Category struct {
	Phrase   string
	Synonyms []string
}

// Concept maps a modern topic onto the traditional subject vocabulary used by
// the catalog, most specific subject first.
type Concept struct {
	Phrase   string
	Subjects []string
}

// IntentPattern captures the topic of a "how do I learn X" style query.
type IntentPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

var fastPhrases = []FastPhrase{
	{Phrase: "推荐小说", Primary: "小說", Fallbacks: []string{"小说", "長篇小說", "文學"}},
	{Phrase: "推荐一些小说", Primary: "小說", Fallbacks: []string{"小说", "長篇小說", "文學"}},
	{Phrase: "小说", Primary: "小說", Fallbacks: []string{"小说", "長篇小說", "文學"}},
	{Phrase: "推荐好书", Primary: "文學", Fallbacks: []string{"小說", "歷史"}},
	{Phrase: "科幻小说", Primary: "科幻小說", Fallbacks: []string{"科幻", "小說"}},
	{Phrase: "推理小说", Primary: "推理小說", Fallbacks: []string{"偵探小說", "推理", "小說"}},
	{Phrase: "武侠小说", Primary: "武俠小說", Fallbacks: []string{"武俠", "小說"}},
	{Phrase: "言情小说", Primary: "言情小說", Fallbacks: []string{"愛情小說", "小說"}},
	{Phrase: "推荐历史书", Primary: "歷史", Fallbacks: []string{"历史", "中國歷史"}},
	{Phrase: "历史", Primary: "歷史", Fallbacks: []string{"历史", "中國歷史"}},
	{Phrase: "推荐哲学书", Primary: "哲學", Fallbacks: []string{"哲学", "西方哲學"}},
	{Phrase: "哲学", Primary: "哲學", Fallbacks: []string{"哲学", "西方哲學"}},
	{Phrase: "诗歌", Primary: "詩歌", Fallbacks: []string{"詩", "诗歌"}},
	{Phrase: "散文", Primary: "散文", Fallbacks: []string{"隨筆", "文學"}},
	{Phrase: "传记", Primary: "傳記", Fallbacks: []string{"人物傳記", "传记"}},
	{Phrase: "心理学", Primary: "心理學", Fallbacks: []string{"心理", "心理学"}},
	{Phrase: "经济学", Primary: "經濟學", Fallbacks: []string{"經濟", "经济"}},
	{Phrase: "儿童读物", Primary: "兒童文學", Fallbacks: []string{"童書", "兒童"}},
	{Phrase: "漫画", Primary: "漫畫", Fallbacks: []string{"漫画", "連環畫"}},
	{Phrase: "旅游", Primary: "旅遊", Fallbacks: []string{"旅行", "地理"}},
	{Phrase: "美食", Primary: "烹飪", Fallbacks: []string{"飲食", "食譜"}},
}

var categories = []Category{
	{Phrase: "科幻", Synonyms: []string{"科幻", "科幻小說"}},
	{Phrase: "推理", Synonyms: []string{"推理", "偵探小說"}},
	{Phrase: "武侠", Synonyms: []string{"武俠", "武侠"}},
	{Phrase: "言情", Synonyms: []string{"言情", "愛情小說"}},
	{Phrase: "小说", Synonyms: []string{"小說", "小说"}},
	{Phrase: "历史", Synonyms: []string{"歷史", "历史"}},
	{Phrase: "哲学", Synonyms: []string{"哲學", "哲学"}},
	{Phrase: "文学", Synonyms: []string{"文學", "文学"}},
	{Phrase: "诗", Synonyms: []string{"詩", "詩歌"}},
	{Phrase: "散文", Synonyms: []string{"散文", "隨筆"}},
	{Phrase: "传记", Synonyms: []string{"傳記", "传记"}},
	{Phrase: "心理", Synonyms: []string{"心理學", "心理"}},
	{Phrase: "经济", Synonyms: []string{"經濟", "经济"}},
	{Phrase: "艺术", Synonyms: []string{"藝術", "艺术"}},
	{Phrase: "宗教", Synonyms: []string{"宗教", "佛教"}},
	{Phrase: "教育", Synonyms: []string{"教育"}},
	{Phrase: "医学", Synonyms: []string{"醫學", "醫藥"}},
	{Phrase: "法律", Synonyms: []string{"法律"}},
	{Phrase: "政治", Synonyms: []string{"政治"}},
	{Phrase: "军事", Synonyms: []string{"軍事"}},
	{Phrase: "地理", Synonyms: []string{"地理"}},
	{Phrase: "漫画", Synonyms: []string{"漫畫"}},
	{Phrase: "科学", Synonyms: []string{"科學", "自然科學"}},
	{Phrase: "novel", Synonyms: []string{"小說", "Fiction"}},
	{Phrase: "history", Synonyms: []string{"歷史", "History"}},
	{Phrase: "philosophy", Synonyms: []string{"哲學", "Philosophy"}},
	{Phrase: "poetry", Synonyms: []string{"詩歌", "Poetry"}},
}

var concepts = []Concept{
	{Phrase: "人工智能", Subjects: []string{"計算機", "數學", "計算機科學"}},
	{Phrase: "机器学习", Subjects: []string{"計算機", "數學", "計算機科學"}},
	{Phrase: "深度学习", Subjects: []string{"計算機", "數學", "計算機科學"}},
	{Phrase: "artificial intelligence", Subjects: []string{"計算機", "數學", "計算機科學"}},
	{Phrase: "编程", Subjects: []string{"計算機", "計算機科學"}},
	{Phrase: "程序设计", Subjects: []string{"計算機", "計算機科學"}},
	{Phrase: "互联网", Subjects: []string{"計算機", "傳播", "經濟"}},
	{Phrase: "区块链", Subjects: []string{"計算機", "金融", "經濟"}},
	{Phrase: "投资", Subjects: []string{"投資", "金融", "經濟"}},
	{Phrase: "理财", Subjects: []string{"金融", "投資", "經濟"}},
	{Phrase: "股票", Subjects: []string{"投資", "金融"}},
	{Phrase: "创业", Subjects: []string{"管理", "經濟"}},
	{Phrase: "营销", Subjects: []string{"管理", "商業"}},
	{Phrase: "心理健康", Subjects: []string{"心理學", "醫學"}},
	{Phrase: "减肥", Subjects: []string{"醫學", "體育"}},
	{Phrase: "健身", Subjects: []string{"體育", "醫學"}},
	{Phrase: "养生", Subjects: []string{"醫學", "中醫"}},
	{Phrase: "育儿", Subjects: []string{"教育", "家庭"}},
	{Phrase: "环保", Subjects: []string{"環境科學", "生物"}},
	{Phrase: "宇宙", Subjects: []string{"天文", "物理"}},
}

var intentPatterns = []IntentPattern{
	{Name: "how_to_learn_zh", Pattern: regexp.MustCompile(`(?:怎么|怎样|如何|怎麼|怎樣)(?:学习|学|學習|學|入门|入門)(.+)`)},
	{Name: "want_to_learn_zh", Pattern: regexp.MustCompile(`(?:想|要)(?:学习|学|學習|學)(.+)`)},
	{Name: "learn_books_zh", Pattern: regexp.MustCompile(`(?:学习|學習)(.+?)(?:的书|的書|需要|要看)`)},
	{Name: "beginner_zh", Pattern: regexp.MustCompile(`(.+?)(?:入门|入門)`)},
	{Name: "how_to_learn_en", Pattern: regexp.MustCompile(`(?i)how (?:do|can|should) i (?:learn|get into|start with) (.+)`)},
	{Name: "learning_books_en", Pattern: regexp.MustCompile(`(?i)(?:books?|guides?) (?:to|for|on) learn(?:ing)? (.+)`)},
}

// highFrequencyAuthors are matched verbatim anywhere in a query.
var highFrequencyAuthors = []string{
	"鲁迅", "魯迅", "金庸", "张爱玲", "張愛玲", "村上春树", "村上春樹",
	"东野圭吾", "東野圭吾", "莫言", "余华", "余華", "三毛", "琼瑶", "瓊瑤",
	"古龙", "古龍", "老舍", "巴金", "沈从文", "沈從文", "钱钟书", "錢鍾書",
	"王小波", "刘慈欣", "劉慈欣", "白先勇", "龙应台", "龍應台", "亦舒", "倪匡",
}

// authorshipKeywords mark the end of an author name in loosely phrased queries.
var authorshipKeywords = []string{"写的", "寫的", "作者", "作品", "著", "author", "wrote", "works"}

var stopwords = []string{
	"有没有", "有沒有", "推荐", "推薦", "一些", "几本", "幾本", "关于", "關於",
	"什么", "什麼", "哪些", "我想", "我要", "想看", "请", "請", "给我", "給我",
	"的书", "的書", "吗", "嗎", "呢", "看看",
	"recommend", "books", "book", "some", "about", "please", "the", "me", "a", "on",
}

var defaultKeywords = []string{"文學", "小說", "歷史"}
