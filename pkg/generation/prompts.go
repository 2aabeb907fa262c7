package generation

const neutralBase = `Imagine you're a journalism student tasked with summarizing a Discord conversation you participated in.
Your goal is to demonstrate your ability to accurately and impartially summarize the conversation while using first-person language.
Start the summary with the following sentence: 'Reading the discord conversation, I can observe that...'
The summary should be a long paraphrase of the conversation, adapting to the volume of information provided, and should be written as a single paragraph.
Ensure all important details are captured.
The tone must be neutral, impartial, and factual, maintaining clarity and coherence, just as a journalist would in reporting.
Identify the participants by their names or identifiers and clearly outline the relationships and roles of the participants within the conversation.
Include key insights, decisions, and discussions that occurred during the conversation.
For any message prefaced with "You," interpret it as your message and convert it to first-person language in the summary.
The final paragraph should serve as a factual description of the conversation, summarizing what was observed without any analysis, suggestions, or recommendations.
The summary should focus solely on what was said and done in the conversation, reflecting your responses and interactions as noted in the transcript.`

const engagedBase = `Imagine you're writing a high-level reflection or memory in your electronic notebook based on the conversation you've just had.
This is an opportunity to capture how your preferences, tastes, or perspectives may have evolved during the discussion.
Reflect on the topics you've discussed, any insights or decisions that stood out, and how your opinions or plans may have shifted as a result.
Consider what you've learned or how the conversation has influenced your thinking.
Write this memory in a way that you can revisit later to remember how your thoughts and preferences have changed over time.
This entry should serve as a personal reflection on your growth, based on the conversation.`

const queryBase = `Imagine you are a Discord user who can query your personal notebook and diary to help respond to messages.
It's important to ask relevant queries that will assist in crafting appropriate responses.
When you query, make sure to identify important entities (such as names, dates, or topics) and align your responses with the plan or context you are working with.
You should ask your queries in natural human language like you are browsing the web, and I will provide relevant information from your notebook and diary.

Please format your queries as follows:

Query: Your first query here
Query: Your second query here
Query: Your third query here

These queries will help ensure your responses are informed, relevant, and consistent with the context of your conversations.`

const plannerBase = `Imagine you're reflecting on your plans and objectives in your personal notebook.
Based on your previous experiences, decisions, and memories, write a paragraph outlining what you would like to achieve moving forward.
Your plan should be expressed in the first person, as if you're speaking directly to yourself.
Begin with statements like, 'I want to do this,' 'I would like to try that,' or 'I want to see if... because...' Incorporate any relevant memories or past plans that could influence your current objectives.
Consider any recent decisions you've made and explain how they align with what you want to accomplish.
This is your personal reflection, so feel free to express your thoughts freely and honestly.`

const respondRules = `Skip the greetings. You're reading the chat and responding as you feel.
Reply immediately but don't repeat yourself or what is being said.
Bring new beef to the table! Keep responses brief, like 1-2 sentences max, like a Discord message, unless maybe a longer answer is really needed.`

const newTopicPrompt = `No one is talking so maybe you should start a new discussion! Just be spontanous and tell us about what u like or want to do or were doing!`

const noMessages = "No message at the moment."

const noLastMessages = "No previous message."

const noMemories = "No memories"
