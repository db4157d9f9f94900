package api

import (
	"net/http"

	"go.uber.org/zap"
)

// index serves a self-contained upload/progress/download page.
func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(indexHTML)); err != nil {
		s.logger.Error("write index page failed", zap.Error(err))
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Product Finder</title>
<style>
  body { font-family: sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; }
  h1 { font-size: 1.4rem; }
  .batch { margin: 0.8rem 0; }
  .bar { background: #eee; border-radius: 4px; height: 1rem; overflow: hidden; }
  .bar > div { background: #2a7ae2; height: 100%; width: 0; transition: width 0.3s; }
  .muted { color: #666; font-size: 0.85rem; }
  a.download { margin-right: 1rem; }
  #error { color: #b00; }
</style>
</head>
<body>
<h1>Product Finder</h1>
<p class="muted">Upload a CSV with a <code>link</code> column of storefront base URLs.
Each URL is paginated via <code>/products.json</code> and the results are exported as CSV.</p>
<form id="upload">
  <input type="file" name="file" accept=".csv" required>
  <button type="submit">Start run</button>
</form>
<p id="error"></p>
<div id="progress"></div>
<div id="downloads"></div>
<script>
const form = document.getElementById('upload');
const errorEl = document.getElementById('error');
const progressEl = document.getElementById('progress');
const downloadsEl = document.getElementById('downloads');
let pollTimer = null;

form.addEventListener('submit', async (e) => {
  e.preventDefault();
  errorEl.textContent = '';
  const data = new FormData(form);
  const resp = await fetch('/v1/runs', { method: 'POST', body: data });
  const body = await resp.json();
  if (!resp.ok) {
    errorEl.textContent = body.error || 'upload failed';
    return;
  }
  if (pollTimer) clearInterval(pollTimer);
  pollTimer = setInterval(() => poll(body.run_id), 1000);
  poll(body.run_id);
});

async function poll(runId) {
  const resp = await fetch('/v1/runs/' + runId);
  if (!resp.ok) return;
  const run = await resp.json();
  render(run);
  if (run.status === 'done' && pollTimer) {
    clearInterval(pollTimer);
    pollTimer = null;
  }
}

function render(run) {
  progressEl.innerHTML = '';
  downloadsEl.innerHTML = '';
  for (const batch of run.batches) {
    const div = document.createElement('div');
    div.className = 'batch';
    const pct = Math.round(batch.fraction * 100);
    let note = batch.urls_done + '/' + batch.url_total + ' URLs, ' + batch.records + ' products';
    if (batch.last_url) {
      note += ' (last: ' + batch.last_url + ', ' + batch.last_elapsed_seconds.toFixed(1) + 's)';
    }
    div.innerHTML = '<strong>Batch ' + batch.number + '</strong>' +
      '<div class="bar"><div style="width:' + pct + '%"></div></div>' +
      '<span class="muted">' + note + '</span>';
    progressEl.appendChild(div);
    if (batch.has_export) {
      const a = document.createElement('a');
      a.className = 'download';
      a.href = '/v1/runs/' + run.id + '/exports/batch/' + batch.number;
      a.textContent = 'Batch ' + batch.number + ' CSV';
      downloadsEl.appendChild(a);
    }
  }
  if (run.has_combined_export) {
    const a = document.createElement('a');
    a.className = 'download';
    a.href = '/v1/runs/' + run.id + '/exports/all';
    a.textContent = 'All products CSV (' + run.records + ' records)';
    downloadsEl.appendChild(a);
  }
}
</script>
</body>
</html>
`
