package query

import (
	"fmt"
	"strings"
)

const documentPrompt = "請針對這份文件進行深度分析，並以繁體中文與 Markdown 格式輸出詳細報告。內容應包含：\n" +
	"1. **文件核心摘要**：這份文件的主要目的與結論。\n" +
	"2. **關鍵觀點與發現**：列出文件中最重要的數據、論點或洞察（Golden Nuggets）。\n" +
	"3. **作者立場與意圖**：分析作者或撰寫單位的觀點與潛在目標。\n" +
	"4. **問題與解決方案**：文中提到的主要挑戰及其對應解法。\n" +
	"5. **行動建議**：基於文件內容，讀者接下來可以採取的具體行動。\n"

// Sections 5 and 6 share a line.
const videoPrompt = "請針對這部影片進行深度分析，並以繁體中文與 Markdown 格式輸出詳細報告。內容應包含：\n" +
	"1. **講者個人想法**：分析講者對主題的主觀看法、立場與態度。\n" +
	"2. **關鍵重要觀念**：列出講者強調的核心理念或獨特見解（Golden Nuggets）。\n" +
	"3. **專案規劃與行動**：講者是否提到具體的專案、未來計畫或行動步驟？\n" +
	"4. **問題與解決方案**：討論中提到的挑戰及其對應解法。\n" +
	"5. **總結**：整部影片的精華摘要。" +
	"6. **其他**：是否有提到講者參考甚麼youtube影片或是其他教學資源。"

const webPrompt = "請針對這個網頁或影片進行深度分析，並以繁體中文與 Markdown 格式輸出詳細報告。內容應包含：\n" +
	"1. **講者個人想法**：分析講者/作者對主題的主觀看法、立場與態度。\n" +
	"2. **關鍵重要觀念**：列出內容中強調的核心理念或獨特見解（Golden Nuggets）。\n" +
	"3. **專案規劃與行動**：是否提到具體的專案、未來計畫或行動步驟？\n" +
	"4. **問題與解決方案**：討論中提到的挑戰及其對應解法。\n" +
	"5. **總結**：整部內容的精華摘要。"

var digestQueries = []string{
	"Summarize the key themes across these videos.",
	"What are the main takeaways from these discussions?",
	"Identify any common challenges or solutions mentioned.",
}

// FilePrompt is the general analysis prompt for an uploaded file of any type.
func FilePrompt(fileName string) string {
	return fmt.Sprintf("請針對這份檔案 (%s) 進行深度分析，並以繁體中文與 Markdown 格式輸出詳細報告。內容應包含：\n", fileName) +
		"1. **核心摘要**：這份檔案的主要內容目的與結論。\n" +
		"2. **關鍵觀點與發現**：列出內容中最重要的數據、論點或洞察（Golden Nuggets）。\n" +
		"3. **作者/講者立場**：分析作者或講者的觀點與潛在意圖。\n" +
		"4. **問題與解決方案**：提到的主要挑戰及其對應解法。\n" +
		"5. **行動建議**：基於內容，讀者接下來可以採取的具體行動。\n"
}

// DocumentPrompt targets written documents (PDF, text, slides).
func DocumentPrompt() string { return documentPrompt }

// VideoPrompt is used for batch URL analysis of videos.
func VideoPrompt() string { return videoPrompt }

// WebPrompt is used for single web page or video URLs submitted through the
// MCP tools and the HTTP API.
func WebPrompt() string { return webPrompt }

// DigestQueries returns the questions asked, in order, against a multi-source
// digest workspace.
func DigestQueries() []string {
	return append([]string(nil), digestQueries...)
}

// Resolve returns override when it contains anything but whitespace, and
// fallback otherwise.
func Resolve(override, fallback string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return fallback
}
