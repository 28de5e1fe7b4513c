package server

// chatPage is the single-file web UI. It talks to the JSON/SSE API only,
// so anything it does can also be done with curl.
const chatPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>youagent</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; background: #111; color: #ddd; }
h1 { font-size: 1.2rem; }
#log { border: 1px solid #333; border-radius: 6px; padding: 1rem; min-height: 300px; white-space: pre-wrap; }
.user { color: #8cf; }
.agent { color: #ddd; }
.event { color: #777; font-size: 0.85em; }
.error { color: #f88; }
form { display: flex; gap: 0.5rem; margin-top: 1rem; }
input[type=text] { flex: 1; padding: 0.5rem; background: #1a1a1a; color: #ddd; border: 1px solid #333; border-radius: 4px; }
button { padding: 0.5rem 1rem; background: #247; color: #fff; border: 0; border-radius: 4px; cursor: pointer; }
</style>
</head>
<body>
<h1>youagent</h1>
<div id="log"></div>
<form id="chat">
<input type="text" id="message" placeholder="Ask something..." autocomplete="off">
<button type="submit">Send</button>
<button type="button" id="abort">Abort</button>
</form>
<script>
const log = document.getElementById('log');
const form = document.getElementById('chat');
const input = document.getElementById('message');
const session = 'web';

function append(cls, text) {
  const div = document.createElement('div');
  div.className = cls;
  div.textContent = text;
  log.appendChild(div);
  log.scrollTop = log.scrollHeight;
}

form.addEventListener('submit', async (e) => {
  e.preventDefault();
  const message = input.value.trim();
  if (!message) return;
  input.value = '';
  append('user', '> ' + message);

  const resp = await fetch('/api/chat', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({message, session}),
  });
  if (!resp.ok) {
    const body = await resp.json().catch(() => ({}));
    append('error', body.error || ('HTTP ' + resp.status));
    return;
  }

  const reader = resp.body.getReader();
  const decoder = new TextDecoder();
  let buf = '';
  for (;;) {
    const {done, value} = await reader.read();
    if (done) break;
    buf += decoder.decode(value, {stream: true});
    let idx;
    while ((idx = buf.indexOf('\n\n')) >= 0) {
      const frame = buf.slice(0, idx);
      buf = buf.slice(idx + 2);
      handleFrame(frame);
    }
  }
});

function handleFrame(frame) {
  let type = 'message', data = '';
  for (const line of frame.split('\n')) {
    if (line.startsWith('event: ')) type = line.slice(7);
    else if (line.startsWith('data: ')) data = line.slice(6);
  }
  if (!data) return;
  const payload = JSON.parse(data);
  if (type === 'reply') append('agent', payload.reply);
  else if (type === 'error') append('error', payload.error);
  else if (type === 'aborted') append('event', '[aborted]');
  else if (type === 'tool_start') append('event', '[tool ' + payload.index + '/' + payload.total + ': ' + payload.tool + ']');
}

document.getElementById('abort').addEventListener('click', () => {
  fetch('/api/abort?session=' + session, {method: 'POST'});
});
</script>
</body>
</html>
`
