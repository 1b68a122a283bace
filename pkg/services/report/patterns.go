package report

import "regexp"

// Pattern tables consulted by the classifier. They are data, not control
// flow: adding a pattern never requires touching the classification logic.

// genericTerms are complete search phrases that name no specific app.
// Whole-term matches only; single words that can be part of an app name do
// not belong here.
var genericTerms = map[string]struct{}{
	"apk": {}, "apk download": {}, "download apk": {}, "free apk": {}, "apk free": {},
	"android apk": {}, "apk android": {}, "app download": {}, "download app": {},
	"mod apk": {}, "apk mod": {}, "premium apk": {}, "pro apk": {},
	"latest apk": {}, "new apk": {}, "update apk": {}, "apk update": {},
	"apk games": {}, "games apk": {}, "free games": {}, "android games": {},
	"app store": {}, "play store": {}, "apk store": {}, "google play": {},
	"google play store": {}, "play store apk": {}, "ch play": {}, "chplay": {},
	"obb file": {}, "obb download": {}, "apk obb": {},
	"old version": {}, "latest version": {}, "new version": {},
	"download": {}, "free": {}, "app": {}, "apps": {}, "game": {}, "games": {},
	"android": {}, "ios": {}, "mobile": {}, "online": {}, "offline": {},
	"mod": {}, "hack": {}, "update": {}, "install": {}, "best": {},
	// Third-party APK stores: competitors, not catalog candidates.
	"apkpure": {}, "apk pure": {}, "apkmirror": {}, "apk mirror": {},
	"apkcombo": {}, "apk combo": {}, "apkmody": {}, "apk mody": {},
	"happymod": {}, "happy mod": {}, "aptoide": {},
	// Common non-English download vocabulary.
	"descargar": {}, "descargar apk": {}, "baixar": {}, "baixar apk": {},
	"télécharger": {}, "скачать": {}, "indir": {}, "unduh": {},
	"تحميل": {}, "ダウンロード": {}, "下载": {},
}

var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(how to|como|cómo|what is|que es|qué es)`),
	regexp.MustCompile(`(?i)(free download|download free|gratis)$`),
	regexp.MustCompile(`(?i)^(best|top|new|latest|old)\s+(app|apps|game|games|apk)s?$`),
	regexp.MustCompile(`(?i)^(mod|hack|crack|cheat|unlimited)\s*(apk|money|coins|gems)?$`),
	regexp.MustCompile(`^\d+(\.\d+)*$`),
}

// technicalPatterns catch package identifiers, explicit version phrases and
// CPU architecture tokens.
var technicalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^com\.\w+\.`),
	regexp.MustCompile(`(?i)version\s+\d+\.\d+`),
	regexp.MustCompile(`(?i)arm64|armeabi|x86`),
}

// watchPattern flags a name requiring human review before any catalog
// action, with the reason surfaced in the report.
type watchPattern struct {
	re     *regexp.Regexp
	reason string
}

const (
	reasonDownloader = "Content downloader"
	reasonGambling   = "Gambling/Betting"
	reasonCheat      = "Possible cheat/hack"
	reasonStreaming  = "Unofficial streaming"
)

var watchlistPatterns = []watchPattern{
	// Known downloader tool names: "y2mate apk", "snaptube pro".
	{regexp.MustCompile(`(?i)y2mate|y2meta|snaptube|vidmate|tubemate|savefrom`), reasonDownloader},
	// "youtube downloader", "tiktok video saver".
	{regexp.MustCompile(`(?i)(youtube|tiktok|instagram|facebook).*(downloader|download|saver)`), reasonDownloader},
	// "downloader for youtube", "video saver instagram".
	{regexp.MustCompile(`(?i)(downloader|saver).*(youtube|tiktok|instagram|facebook)`), reasonDownloader},
	// "casino slots", "bet365", "apuestas deportivas".
	{regexp.MustCompile(`(?i)(casino|slot|poker|bet|betting|apuesta)`), reasonGambling},
	// Numeric-branded variants: "sun.win", "789bet", "888casino".
	{regexp.MustCompile(`(?i)(win|sun|789|888)\.?(club|win|bet|casino)`), reasonGambling},
	// "free fire mod apk", "pubg hack".
	{regexp.MustCompile(`(?i)(free fire|pubg|cod|call of duty).*(mod|hack|cheat)`), reasonCheat},
	// "pelisplus apk", "cuevana 3", "popcorn time".
	{regexp.MustCompile(`(?i)(pelisplus|cuevana|stremio|popcorn)`), reasonStreaming},
}

// versionPatterns extract a version-like substring from a title, first match
// wins.
var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+\.\d+\.\d+)`),
	regexp.MustCompile(`(\d+\.\d+\s*\d*)`),
	regexp.MustCompile(`v(\d+[\d.]*)`),
	regexp.MustCompile(`patch\s*(\d+[\d.]*)`),
}

// trailingVersionPatterns strip version-like tails when deriving base names.
var trailingVersionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+\d+\.\d+[\d.\s]*$`),
	regexp.MustCompile(`(?i)\s+v\d+[\d.]*$`),
	regexp.MustCompile(`(?i)\s+patch\s*\d+[\d.]*$`),
	regexp.MustCompile(`(?i)\s+patch$`),
	regexp.MustCompile(`(?i)\s+version\s*\d+[\d.]*$`),
	regexp.MustCompile(`(?i)\s+\d+\s+\d+[\d.\s]*$`),
}

// trailingFreePatterns strip localized "free" tails.
var trailingFreePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+miễn phí$`), // Vietnamese
	regexp.MustCompile(`(?i)\s+gratis$`),   // Spanish/Portuguese
	regexp.MustCompile(`(?i)\s+free$`),
	regexp.MustCompile(`(?i)\s+gratuit$`),    // French
	regexp.MustCompile(`(?i)\s+бесплатно$`),  // Russian
}

// genericSuffixes are appended store vocabulary carrying no app identity.
// Modifiers like "pro" or "lite" are kept: they may denote distinct apps.
var genericSuffixes = []string{
	" apk", " app", " download", " android", " ios", " for android", " for ios",
}

var whitespaceRun = regexp.MustCompile(`\s+`)
